package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/radmon/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
interval = 2
window = 30
transmit_threshold = 60
batch_size = 90
batch_delay = 8
channel_id = "1364818"
write_api_key = "WRITEKEY"
dose_threshold = 0.5
temp_threshold = 45.0
alert_cooldown = 15
tube_factor = 0.0081
log_level = "debug"
telemetry = true
database = "/path/to/telemetry.db"
`)
	configPath := filepath.Join(tempDir, "radmon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("RADMON_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Interval, "Expected Interval 2")
	assert.Equal(t, 30, cfg.Window, "Expected Window 30")
	assert.Equal(t, 60, cfg.TransmitThreshold, "Expected TransmitThreshold 60")
	assert.Equal(t, 90, cfg.BatchSize, "Expected BatchSize 90")
	assert.Equal(t, 8, cfg.BatchDelay, "Expected BatchDelay 8")
	assert.Equal(t, "1364818", cfg.ChannelID, "Expected ChannelID 1364818")
	assert.Equal(t, "WRITEKEY", cfg.WriteAPIKey, "Expected WriteAPIKey WRITEKEY")
	assert.InDelta(t, 0.5, cfg.DoseThreshold, 1e-9, "Expected DoseThreshold 0.5")
	assert.InDelta(t, 45.0, cfg.TempThreshold, 1e-9, "Expected TempThreshold 45")
	assert.Equal(t, 15, cfg.AlertCooldown, "Expected AlertCooldown 15")
	assert.InDelta(t, 0.0081, cfg.TubeFactor, 1e-9, "Expected TubeFactor 0.0081")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
	assert.True(t, cfg.Telemetry, "Expected Telemetry true")
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB, "Expected TelemetryDB /path/to/telemetry.db")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RADMON_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 1, cfg.Interval, "Expected default Interval 1")
	assert.Equal(t, 60, cfg.Window, "Expected default Window 60")
	assert.Equal(t, 120, cfg.TransmitThreshold, "Expected default TransmitThreshold 120")
	assert.Equal(t, 180, cfg.BatchSize, "Expected default BatchSize 180")
	assert.Equal(t, 16, cfg.BatchDelay, "Expected default BatchDelay 16")
	assert.Equal(t, 180, cfg.LinkTimeout, "Expected default LinkTimeout 180")
	assert.Equal(t, 30, cfg.AlertCooldown, "Expected default AlertCooldown 30")
	assert.InDelta(t, 0.75, cfg.DoseThreshold, 1e-9, "Expected default DoseThreshold 0.75")
	assert.InDelta(t, 0.0057, cfg.TubeFactor, 1e-9, "Expected default TubeFactor 0.0057")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
	assert.False(t, cfg.Telemetry, "Expected default Telemetry false")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "radmon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("RADMON_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
log_level = "noisy"
`)
	configPath := filepath.Join(tempDir, "radmon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("RADMON_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid log level")
}

func TestInvalidInterval(t *testing.T) {
	tempDir := t.TempDir()

	configContent := []byte(`
interval = -5
`)
	configPath := filepath.Join(tempDir, "radmon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("RADMON_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval")
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("RADMON_CONFIG", "")

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"cmd", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}
