package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"tg-moderation/internal/config"
)

const logFilePrefix = "tg-moderation"

var (
	mu          sync.RWMutex
	sugar       = newConsoleLogger(zapcore.InfoLevel)
	logFilePath string
)

// createLogFilePath generates the path of the rotating log file
func createLogFilePath(logDir, prefix string) string {
	return filepath.Join(logDir, fmt.Sprintf("%s.log", prefix))
}

// createRotatingLogger creates a lumberjack rotating logger
func createRotatingLogger(logFilePath string, cfg *config.Config) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.Logger.Rotation.MaxSize,
		MaxBackups: cfg.Logger.Rotation.MaxBackups,
		MaxAge:     cfg.Logger.Rotation.MaxAge,
		Compress:   cfg.Logger.Rotation.Compress,
	}
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.ConsoleSeparator = " | "
	return enc
}

func newConsoleLogger(level zapcore.Level) *zap.SugaredLogger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// ParseLevel maps configured level names to zap levels. WARNING is accepted
// next to WARN.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN", "WARNING":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Setup configures logging to output to both stdout and a rotating log file
func Setup(cfg *config.Config) error {
	logDir := cfg.Logger.Directory

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	path := createLogFilePath(logDir, logFilePrefix)
	rotatingLogger := createRotatingLogger(path, cfg)
	writer := zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), zapcore.AddSync(rotatingLogger))

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), writer, ParseLevel(cfg.Logger.Level))

	mu.Lock()
	sugar = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	logFilePath = path
	mu.Unlock()

	Infof("Logging initialized: writing to %s", path)
	return nil
}

// LogFilePath returns the active log file, empty before Setup.
func LogFilePath() string {
	mu.RLock()
	defer mu.RUnlock()
	return logFilePath
}

// Sync flushes buffered entries.
func Sync() {
	_ = get().Sync()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debugf(format string, args ...interface{}) { get().Debugf(format, args...) }

func Infof(format string, args ...interface{}) { get().Infof(format, args...) }

func Warningf(format string, args ...interface{}) { get().Warnf(format, args...) }

func Errorf(format string, args ...interface{}) { get().Errorf(format, args...) }

func Fatalf(format string, args ...interface{}) { get().Fatalf(format, args...) }

func Info(args ...interface{}) { get().Info(args...) }

func Warning(args ...interface{}) { get().Warn(args...) }

func Error(args ...interface{}) { get().Error(args...) }

// DeleteFailure logs a failed message deletion in a fixed, grep-friendly shape.
func DeleteFailure(chatID int64, messageID int, userID int64, reason string) {
	get().Errorf("Delete failure | chat_id=%d | message_id=%d | user_id=%d | reason=%s", chatID, messageID, userID, reason)
}
