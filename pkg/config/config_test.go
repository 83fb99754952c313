package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/pulse/internal/device"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ScanTimeout)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 2*time.Second, cfg.DescriptorReadTimeout)
	assert.Equal(t, 4, cfg.DiscoveryConcurrency)
	assert.Equal(t, 16, cfg.NotificationBuffer)
	assert.Equal(t, device.DefaultOptionalServices, cfg.OptionalServices)
	assert.NoError(t, cfg.Validate())

	// the defaults must not alias the package-level slice
	cfg.OptionalServices[0] = "changed"
	assert.NotEqual(t, "changed", device.DefaultOptionalServices[0])
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides only the keys it sets", func(t *testing.T) {
		path := writeConfig(t, `
log_level: debug
scan_timeout: 3s
descriptor_read_timeout: 0s
optional_services:
  - "180d"
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 3*time.Second, cfg.ScanTimeout)
		assert.Equal(t, time.Duration(0), cfg.DescriptorReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.ConnectTimeout)
		assert.Equal(t, 4, cfg.DiscoveryConcurrency)
		assert.Equal(t, []string{"180d"}, cfg.OptionalServices)
	})

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad yaml", body: "scan_timeout: [", want: "failed to parse config"},
		{name: "bad duration", body: "connect_timeout: soon", want: "failed to parse config"},
		{name: "bad level", body: "log_level: loud", want: "invalid config"},
		{name: "zero concurrency", body: "discovery_concurrency: 0", want: "discovery_concurrency"},
		{name: "negative scan timeout", body: "scan_timeout: -1s", want: "scan_timeout"},
		{name: "negative notification buffer", body: "notification_buffer: -1", want: "notification_buffer must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     logrus.Level
	}{
		{name: "creates logger with debug level", logLevel: "debug", want: logrus.DebugLevel},
		{name: "creates logger with info level", logLevel: "info", want: logrus.InfoLevel},
		{name: "creates logger with warn level", logLevel: "warn", want: logrus.WarnLevel},
		{name: "creates logger with error level", logLevel: "error", want: logrus.ErrorLevel},
		{name: "unknown level falls back to info", logLevel: "chatty", want: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.logLevel}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.want, logger.GetLevel())

			// Verify formatter is set correctly
			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}
