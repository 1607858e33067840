// Package config loads the YAML configuration for a forge embedding.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default reporting settings
	defaultLogDir = "logs"

	// Default retention settings
	defaultRetentionSchedule = "0 3 * * *"
	defaultRetentionMaxAge   = 7 * 24 * time.Hour

	// Default monitoring settings
	defaultJobName = "forge"

	// Default logging settings
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stderr"
)

// Config represents the complete reporting configuration.
type Config struct {
	// LogDir is the directory job logs are written to.
	LogDir string `yaml:"log_dir"`

	Logging    LoggingConfig    `yaml:"logging"`
	Retention  RetentionConfig  `yaml:"retention"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// LoggingConfig defines operator log stream settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// RetentionConfig defines job log retention settings.
type RetentionConfig struct {
	// Schedule is a 5-field cron expression for sweep runs.
	Schedule string `yaml:"schedule"`

	// MaxAge is how long job logs are kept.
	MaxAge time.Duration `yaml:"max_age"`
}

// MonitoringConfig holds metrics settings. Pushing is optional; with no
// remote write URL, metrics are only exposed for scraping.
type MonitoringConfig struct {
	RemoteWriteURL string `yaml:"remote_write_url"`
	JobName        string `yaml:"jobname"`
}

// Validate performs basic validation on the configuration.
func (c *Config) Validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("log directory is required")
	}
	if c.Retention.MaxAge < 0 {
		return fmt.Errorf("retention max age must not be negative")
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *Config) SetDefaults() {
	if c.LogDir == "" {
		c.LogDir = defaultLogDir
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = defaultRetentionSchedule
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = defaultRetentionMaxAge
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
}

// LoadConfig reads the YAML config file at the given path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
