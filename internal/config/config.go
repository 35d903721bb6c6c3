package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the lexcircle service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Paths     PathsConfig     `yaml:"paths"`
	Log       LogConfig       `yaml:"log"`
	Redaction RedactionConfig `yaml:"redaction"`
}

// ServerConfig holds network listener settings.
type ServerConfig struct {
	HTTPAddr          string        `yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// PathsConfig holds filesystem paths for data.
type PathsConfig struct {
	Data     string `yaml:"data"`
	Database string `yaml:"database"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// RedactionConfig tunes the account redaction service and its reconciler.
type RedactionConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	Workers           int           `yaml:"workers"`
	MaxAttempts       int           `yaml:"max_attempts"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:          ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Paths: PathsConfig{
			Data:     "./data",
			Database: "./data/lexcircle.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Redaction: RedactionConfig{
			BatchSize:         500,
			ReconcileInterval: 5 * time.Minute,
			Workers:           4,
			MaxAttempts:       10,
		},
	}
}

// Load reads and parses a YAML config file, then applies environment overrides.
// A missing file is not an error: defaults and environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env is optional; values already present in the environment win.
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LEXCIRCLE_DATABASE"); v != "" {
		c.Paths.Database = v
	}
	if v := os.Getenv("LEXCIRCLE_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("LEXCIRCLE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Paths.Database == "" {
		return fmt.Errorf("config: paths.database is required")
	}
	if c.Redaction.BatchSize <= 0 {
		return fmt.Errorf("config: redaction.batch_size must be > 0")
	}
	if c.Redaction.Workers <= 0 {
		return fmt.Errorf("config: redaction.workers must be > 0")
	}
	if c.Redaction.MaxAttempts <= 0 {
		return fmt.Errorf("config: redaction.max_attempts must be > 0")
	}
	if c.Redaction.ReconcileInterval <= 0 {
		return fmt.Errorf("config: redaction.reconcile_interval must be > 0")
	}
	return nil
}
