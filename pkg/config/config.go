// Package config holds the pulse configuration: defaults from struct tags,
// optionally overlaid by a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/pulse/internal/device"
)

// Config holds application configuration
type Config struct {
	LogLevel              string        `yaml:"log_level" default:"info"`
	ScanTimeout           time.Duration `yaml:"scan_timeout" default:"10s"`
	ConnectTimeout        time.Duration `yaml:"connect_timeout" default:"30s"`
	DescriptorReadTimeout time.Duration `yaml:"descriptor_read_timeout" default:"2s"` // 0 skips descriptor reads
	DiscoveryConcurrency  int           `yaml:"discovery_concurrency" default:"4"`
	NotificationBuffer    int           `yaml:"notification_buffer" default:"16"`
	OptionalServices      []string      `yaml:"optional_services"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.OptionalServices = append([]string(nil), device.DefaultOptionalServices...)
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch {
	case c.ScanTimeout <= 0:
		return fmt.Errorf("scan_timeout must be positive, got %s", c.ScanTimeout)
	case c.ConnectTimeout <= 0:
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	case c.DescriptorReadTimeout < 0:
		return fmt.Errorf("descriptor_read_timeout must not be negative, got %s", c.DescriptorReadTimeout)
	case c.DiscoveryConcurrency < 1:
		return fmt.Errorf("discovery_concurrency must be at least 1, got %d", c.DiscoveryConcurrency)
	case c.NotificationBuffer < 0:
		// monitor reads from the queue
		return fmt.Errorf("notification_buffer must not be negative, got %d", c.NotificationBuffer)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
