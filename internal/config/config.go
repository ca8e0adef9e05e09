// Package config loads engine configuration from a YAML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Provider   ProviderConfig   `yaml:"provider"`
	Automation AutomationConfig `yaml:"automation"`
	Preview    PreviewConfig    `yaml:"preview"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the listen host. Containers listen on all interfaces.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the preview-count cache settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// ProviderConfig holds the transactional email provider settings.
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// UnsubscribeBaseURL is the public prefix for unsubscribe links,
	// e.g. "https://engage.example.com/u".
	UnsubscribeBaseURL string `yaml:"unsubscribe_base_url"`
	// SigningKey signs unsubscribe tokens. Required in production.
	SigningKey string `yaml:"signing_key"`
}

// Timeout returns the configured provider timeout as a duration.
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AutomationConfig holds batch scheduling and eligibility settings.
type AutomationConfig struct {
	Enabled bool `yaml:"enabled"`
	// IntervalMinutes is the cron cadence for automation batches.
	IntervalMinutes int `yaml:"interval_minutes"`
	// FlowParallelism bounds concurrent flow processing within one batch.
	FlowParallelism int `yaml:"flow_parallelism"`
	// MaxEmailFrequencyDays is the fallback cross-flow cool-down used when a
	// location has no explicit setting.
	MaxEmailFrequencyDays int `yaml:"max_email_frequency_days"`
}

// Interval returns the batch cadence as a duration.
func (c AutomationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// PreviewConfig tunes the interactive segment preview path.
type PreviewConfig struct {
	// DebounceMillis is the quiet period before a preview count is issued
	// while an operator is editing conditions.
	DebounceMillis int `yaml:"debounce_millis"`
	// CacheTTLSeconds bounds staleness of cached preview counts.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// Debounce returns the preview quiet period as a duration.
func (c PreviewConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// CacheTTL returns the preview cache TTL as a duration.
func (c PreviewConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Automation.IntervalMinutes == 0 {
		cfg.Automation.IntervalMinutes = 15
	}
	if cfg.Automation.FlowParallelism == 0 {
		cfg.Automation.FlowParallelism = 4
	}
	if cfg.Automation.MaxEmailFrequencyDays == 0 {
		cfg.Automation.MaxEmailFrequencyDays = 3
	}
	if cfg.Preview.DebounceMillis == 0 {
		cfg.Preview.DebounceMillis = 500
	}
	if cfg.Preview.CacheTTLSeconds == 0 {
		cfg.Preview.CacheTTLSeconds = 60
	}
}

// LoadFromEnv loads configuration with environment variable overrides. A
// .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in deployment. A missing config file is not
// an error; defaults plus env vars are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("UNSUBSCRIBE_SIGNING_KEY"); v != "" {
		cfg.Provider.SigningKey = v
	}
	if v := os.Getenv("UNSUBSCRIBE_BASE_URL"); v != "" {
		cfg.Provider.UnsubscribeBaseURL = v
	}
	if v := os.Getenv("AUTOMATION_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Automation.IntervalMinutes = n
		}
	}

	return cfg, nil
}
