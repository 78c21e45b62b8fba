// Package config handles loading and validating the application
// configuration from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/stocksentry/stocksentry/pkg/types"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Store     StoreConfig     `yaml:"store"`
	Feed      FeedConfig      `yaml:"feed"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Cooldown  CooldownConfig  `yaml:"cooldown"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Overrides OverridesConfig `yaml:"overrides"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings (health, metrics,
// evaluation API).
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings for the price
// and credit store. Disabled means the pipeline runs on in-memory
// defaults only.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// StoreConfig describes the retail store and its evaluation gates.
type StoreConfig struct {
	Info              domain.StoreInfo `yaml:"info"`
	CheckOnlineStatus bool             `yaml:"check_online_status"`
	CheckInAssortment bool             `yaml:"check_in_assortment"`
	BasketAllowList   []string         `yaml:"basket_allow_list"`
}

// FeedConfig defines the snapshot feed settings.
type FeedConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// BroadcastConfig defines the websocket broadcast channel settings.
type BroadcastConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Port              int           `yaml:"port"`
	Tokens            []string      `yaml:"tokens"`
	TLSCertPath       string        `yaml:"tls_cert_path"`
	TLSKeyPath        string        `yaml:"tls_key_path"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PacingInterval    time.Duration `yaml:"pacing_interval"`
	LogTokens         bool          `yaml:"log_tokens"`
}

// WebhookConfig defines the chat webhook channel settings.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// CooldownConfig defines alert suppression TTLs.
type CooldownConfig struct {
	StockTTL  time.Duration `yaml:"stock_ttl"`
	BasketTTL time.Duration `yaml:"basket_ttl"`
}

// ScheduleConfig defines periodic task intervals.
type ScheduleConfig struct {
	EvaluationInterval time.Duration `yaml:"evaluation_interval"`
	PruneInterval      time.Duration `yaml:"prune_interval"`
}

// OverridesConfig points at the hot-loadable product URL override table.
type OverridesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment
// variable substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyFeedDefaults(&cfg.Feed)
	applyBroadcastDefaults(&cfg.Broadcast)
	applyCooldownDefaults(&cfg.Cooldown)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

func applyFeedDefaults(f *FeedConfig) {
	if f.Timeout == 0 {
		f.Timeout = 30 * time.Second
	}
}

func applyBroadcastDefaults(b *BroadcastConfig) {
	if b.Port == 0 {
		b.Port = 8081
	}
	if b.HeartbeatInterval == 0 {
		b.HeartbeatInterval = 30 * time.Second
	}
	if b.PacingInterval == 0 {
		b.PacingInterval = 250 * time.Millisecond
	}
}

func applyCooldownDefaults(c *CooldownConfig) {
	if c.StockTTL == 0 {
		c.StockTTL = 2 * time.Hour
	}
	if c.BasketTTL == 0 {
		c.BasketTTL = 8 * time.Hour
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.EvaluationInterval == 0 {
		s.EvaluationInterval = time.Minute
	}
	if s.PruneInterval == 0 {
		s.PruneInterval = 15 * time.Minute
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Store.Info.BaseURL == "" {
		errs = append(errs, fmt.Errorf("store.info.base_url is required"))
	}
	if cfg.Store.Info.ShortCode == "" {
		errs = append(errs, fmt.Errorf("store.info.short_code is required"))
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when database is enabled"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when database is enabled"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when database is enabled"))
		}
	}

	if cfg.Broadcast.Enabled && len(cfg.Broadcast.Tokens) == 0 {
		errs = append(errs, fmt.Errorf("broadcast.tokens must not be empty when broadcast is enabled"))
	}
	if (cfg.Broadcast.TLSCertPath == "") != (cfg.Broadcast.TLSKeyPath == "") {
		errs = append(errs, fmt.Errorf("broadcast TLS requires both tls_cert_path and tls_key_path"))
	}

	if cfg.Webhook.Enabled && cfg.Webhook.URL == "" {
		errs = append(errs, fmt.Errorf("webhook.url is required when webhook is enabled"))
	}

	return errors.Join(errs...)
}
