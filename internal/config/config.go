package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Transport TransportConfig `yaml:"transport"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type QueueConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	JobTimeout   time.Duration `yaml:"job_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type TransportConfig struct {
	Disabled       bool          `yaml:"disabled"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type DiscoveryConfig struct {
	Port         int           `yaml:"port"`
	Concurrency  int           `yaml:"concurrency"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type WebhookConfig struct {
	URL         string        `yaml:"url"`
	Secret      string        `yaml:"secret"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	WorkerCount int           `yaml:"worker_count"`
	QueueSize   int           `yaml:"queue_size"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8335,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "./data/printd.db",
		},
		Queue: QueueConfig{
			MaxAttempts:  3,
			BaseDelay:    4 * time.Second,
			MaxDelay:     60 * time.Second,
			JobTimeout:   20 * time.Second,
			PollInterval: 4 * time.Second,
		},
		Transport: TransportConfig{
			ConnectTimeout: 5 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Port:         9100,
			Concurrency:  30,
			ProbeTimeout: 450 * time.Millisecond,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Path:    "./data/archives",
		},
		Webhook: WebhookConfig{
			Timeout:     10 * time.Second,
			RetryCount:  3,
			RetryDelay:  5 * time.Second,
			WorkerCount: 2,
			QueueSize:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

func LoadFromEnv() *Config {
	cfg := defaults()

	if v := os.Getenv("PRINTD_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("PRINTD_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("PRINTD_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}

	if v := os.Getenv("PRINTD_WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}

	if v := os.Getenv("PRINTD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Queue.MaxAttempts < 1 {
		return fmt.Errorf("queue max attempts must be at least 1")
	}

	if c.Queue.BaseDelay <= 0 {
		return fmt.Errorf("queue base delay must be positive")
	}

	if c.Queue.MaxDelay < c.Queue.BaseDelay {
		return fmt.Errorf("queue max delay must be at least the base delay")
	}

	if c.Queue.JobTimeout <= 0 {
		return fmt.Errorf("queue job timeout must be positive")
	}

	if c.Queue.PollInterval <= 0 {
		return fmt.Errorf("queue poll interval must be positive")
	}

	if c.Transport.ConnectTimeout <= 0 {
		return fmt.Errorf("transport connect timeout must be positive")
	}

	if c.Discovery.Port < 1 || c.Discovery.Port > 65535 {
		return fmt.Errorf("discovery port must be between 1 and 65535, got %d", c.Discovery.Port)
	}

	if c.Discovery.Concurrency < 1 {
		return fmt.Errorf("discovery concurrency must be at least 1")
	}

	if c.Discovery.ProbeTimeout <= 0 {
		return fmt.Errorf("discovery probe timeout must be positive")
	}

	if c.Archive.Enabled && c.Archive.Path == "" {
		return fmt.Errorf("archive path is required when archiving is enabled")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	return nil
}
