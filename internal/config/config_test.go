package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// resetViper clears viper's global state between tests: Load relies
// on package-level defaults that would otherwise leak across cases.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Transport.Kind)
	assert.Equal(t, 10521, cfg.Transport.TCP.Port)
	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "dlt645.yaml")
	contents := "log_level: debug\ntransport:\n  kind: rtu\n  rtu:\n    device: /dev/ttyS1\n    baud_rate: 9600\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "rtu", cfg.Transport.Kind)
	assert.Equal(t, "/dev/ttyS1", cfg.Transport.RTU.Device)
	assert.Equal(t, 9600, cfg.Transport.RTU.BaudRate)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	resetViper(t)
	t.Setenv("DLT645_TRANSPORT_TCP_PORT", "7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Transport.TCP.Port)
}

func TestLoadMissingFilePathFallsBackToDefaults(t *testing.T) {
	resetViper(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Transport.Kind)
}
