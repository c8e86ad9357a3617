package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"

	"tg-moderation/internal/logger"
)

// CustomGormLogger routes gorm output through the bot logger. SQL traces go to
// DEBUG, slow queries to WARNING and failures to ERROR.
type CustomGormLogger struct {
	LogLevel                  gormlogger.LogLevel
	SlowThreshold             time.Duration
	SkipCallerLookup          bool
	IgnoreRecordNotFoundError bool
}

// NewCustomGormLogger maps the configured bot log level to a gorm level.
func NewCustomGormLogger(level string) gormlogger.Interface {
	var logLevel gormlogger.LogLevel

	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = gormlogger.Info
	case "WARN", "WARNING", "ERROR":
		logLevel = gormlogger.Warn
	case "FATAL":
		logLevel = gormlogger.Error
	default:
		logLevel = gormlogger.Warn
	}

	return &CustomGormLogger{
		LogLevel:                  logLevel,
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	}
}

func (l *CustomGormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *CustomGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Info {
		logger.Infof(msg, data...)
	}
}

func (l *CustomGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Warn {
		logger.Warningf(msg, data...)
	}
}

func (l *CustomGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormlogger.Error {
		logger.Errorf(msg, data...)
	}
}

// Trace logs one executed statement.
func (l *CustomGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormlogger.Silent {
		return
	}

	elapsed := float64(time.Since(begin).Nanoseconds()) / 1e6
	sql, rows := fc()

	prefix := fmt.Sprintf("[%.3fms]", elapsed)
	if !l.SkipCallerLookup {
		prefix = fmt.Sprintf("%s [%s]", prefix, utils.FileWithLineNum())
	}

	switch {
	case err != nil && l.LogLevel >= gormlogger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		logger.Errorf("%s %s; error=%v", prefix, sql, err)
	case l.SlowThreshold != 0 && time.Since(begin) > l.SlowThreshold && l.LogLevel >= gormlogger.Warn:
		logger.Warningf("%s %s; SLOW SQL >= %v, rows=%v", prefix, sql, l.SlowThreshold, rows)
	case l.LogLevel == gormlogger.Info:
		logger.Debugf("%s %s; rows=%v", prefix, sql, rows)
	}
}
