package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig locates the local task database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// AIConfig holds settings for the remote text-generation endpoint.
// The API key is never stored here; see the credential package.
type AIConfig struct {
	Enabled     bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint    string  `mapstructure:"endpoint" yaml:"endpoint"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	TimeoutSec  int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// RateLimit is the maximum number of requests per second.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// CalendarConfig holds settings for deadline mirroring into Google Calendar.
type CalendarConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	CalendarID      string `mapstructure:"calendar_id" yaml:"calendar_id"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file"`
}

// NotificationsConfig holds reminder preferences.
type NotificationsConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	LeadMinutes     int  `mapstructure:"lead_minutes" yaml:"lead_minutes"`
	PollIntervalSec int  `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// Settings converts the configuration into the value handed to the reminder scheduler.
func (n NotificationsConfig) Settings() NotificationSettings {
	return NotificationSettings{
		Enabled:  n.Enabled,
		LeadTime: time.Duration(n.LeadMinutes) * time.Minute,
	}
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	AI            AIConfig            `mapstructure:"ai" yaml:"ai"`
	Calendar      CalendarConfig      `mapstructure:"calendar" yaml:"calendar"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
}

// configDir returns ~/.config/taskpilot, falling back to the working directory.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskpilot")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskpilot/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *AppConfig {
	dir := configDir()
	return &AppConfig{
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "tasks.db"),
		},
		AI: AIConfig{
			Enabled:     true,
			Endpoint:    "https://api.openai.com/v1/chat/completions",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
			TimeoutSec:  30,
			RateLimit:   1,
		},
		Calendar: CalendarConfig{
			Enabled:         false,
			CalendarID:      "primary",
			CredentialsFile: filepath.Join(dir, "credentials.json"),
			TokenFile:       filepath.Join(dir, "token.json"),
		},
		Notifications: NotificationsConfig{
			Enabled:         true,
			LeadMinutes:     30,
			PollIntervalSec: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// setDefaults registers every default so missing keys resolve to sensible values.
func setDefaults(v *viper.Viper, d *AppConfig) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("ai.enabled", d.AI.Enabled)
	v.SetDefault("ai.endpoint", d.AI.Endpoint)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.timeout_sec", d.AI.TimeoutSec)
	v.SetDefault("ai.rate_limit", d.AI.RateLimit)
	v.SetDefault("calendar.enabled", d.Calendar.Enabled)
	v.SetDefault("calendar.calendar_id", d.Calendar.CalendarID)
	v.SetDefault("calendar.credentials_file", d.Calendar.CredentialsFile)
	v.SetDefault("calendar.token_file", d.Calendar.TokenFile)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.lead_minutes", d.Notifications.LeadMinutes)
	v.SetDefault("notifications.poll_interval_sec", d.Notifications.PollIntervalSec)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &pathErr) || errors.As(err, &notFound) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.LeadMinutes <= 0 {
		cfg.Notifications.LeadMinutes = 30
	}
	if cfg.Notifications.PollIntervalSec <= 0 {
		cfg.Notifications.PollIntervalSec = 30
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("ai", cfg.AI)
	v.Set("calendar", cfg.Calendar)
	v.Set("notifications", cfg.Notifications)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
