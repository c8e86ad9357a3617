package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// global configuration structure
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Moderation ModerationConfig `mapstructure:"moderation"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
}

// Telegram bot configuration
type BotConfig struct {
	Token   string        `mapstructure:"token"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration; an empty endpoint selects long polling
type WebhookConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ListenPort  string `mapstructure:"listen_port"`
	DebugPath   string `mapstructure:"debug_path"`
	MetricsPath string `mapstructure:"metrics_path"`
	CertFile    string `mapstructure:"cert_file"`
	KeyFile     string `mapstructure:"key_file"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// ModerationConfig holds the policy knobs of the moderation engine.
type ModerationConfig struct {
	Lexicon          []string        `mapstructure:"lexicon"`
	LexiconFile      string          `mapstructure:"lexicon_file"`
	PunishmentLadder []time.Duration `mapstructure:"punishment_ladder"`
	BanThreshold     int             `mapstructure:"ban_threshold"`
	DailyWindow      time.Duration   `mapstructure:"daily_window"`
	ChallengeWindow  time.Duration   `mapstructure:"challenge_window"`
	Language         string          `mapstructure:"language"`
	Timezone         string          `mapstructure:"timezone"`
}

// GatewayConfig throttles outbound platform calls.
type GatewayConfig struct {
	RateLimit float64       `mapstructure:"rate_limit"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	// .env is optional, it only seeds the process environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env file: %v", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("bot.token", "BOT_TOKEN", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	loaded := &Config{}
	if err := v.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if loaded.Moderation.LexiconFile != "" {
		terms, err := ReadLexiconFile(loaded.Moderation.LexiconFile)
		if err != nil {
			return nil, err
		}
		loaded.Moderation.Lexicon = append(loaded.Moderation.Lexicon, terms...)
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

// Validate checks the moderation settings that the engine cannot run without.
// The bot token is checked by the bot package, so offline commands such as
// migrations work without one.
func (c *Config) Validate() error {
	m := c.Moderation
	if len(m.PunishmentLadder) == 0 {
		return fmt.Errorf("moderation.punishment_ladder must not be empty")
	}
	for i := 1; i < len(m.PunishmentLadder); i++ {
		if m.PunishmentLadder[i] < m.PunishmentLadder[i-1] {
			return fmt.Errorf("moderation.punishment_ladder must be non-decreasing, got %v", m.PunishmentLadder)
		}
	}
	if m.BanThreshold <= 0 {
		return fmt.Errorf("moderation.ban_threshold must be positive")
	}
	if m.DailyWindow <= 0 || m.ChallengeWindow <= 0 {
		return fmt.Errorf("moderation windows must be positive")
	}
	if len(m.Lexicon) == 0 {
		return fmt.Errorf("moderation lexicon is empty")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// Location resolves the timezone used for user-visible timestamps.
func (m ModerationConfig) Location() *time.Location {
	if m.Timezone == "" || m.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, falling back to local time: %v", m.Timezone, err)
		return time.Local
	}
	return loc
}

// ReadLexiconFile reads one term per line. Blank lines and lines starting
// with '#' are skipped.
func ReadLexiconFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening lexicon file: %w", err)
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading lexicon file: %w", err)
	}
	return terms, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.debug_path", "/debug")
	v.SetDefault("bot.webhook.metrics_path", "/metrics")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 5)
	v.SetDefault("logger.rotation.max_backups", 3)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.enabled", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "violations.db")
	v.SetDefault("database.charset", "utf8mb4")

	v.SetDefault("moderation.punishment_ladder", []string{"1m", "5m", "30m", "1h"})
	v.SetDefault("moderation.ban_threshold", 5)
	v.SetDefault("moderation.daily_window", "24h")
	v.SetDefault("moderation.challenge_window", "30m")
	v.SetDefault("moderation.language", "uz")
	v.SetDefault("moderation.timezone", "Local")

	v.SetDefault("gateway.rate_limit", 25)
	v.SetDefault("gateway.timeout", "10s")
}
