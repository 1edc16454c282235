// Package config loads application-wiring settings for a dlt645
// client or server binary: which transport to run, its endpoint
// parameters, request timeout, and log level. It has no knowledge of
// the protocol itself — the DI catalog JSON format is loaded directly
// by the catalog package and never passes through here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Config is the root of the application configuration tree.
type Config struct {
	LogLevel  zapcore.Level   `mapstructure:"-"`
	Transport TransportConfig `mapstructure:"transport"`
	Device    DeviceConfig    `mapstructure:"device"`
}

// TransportConfig selects and parameterizes the byte-level connection.
type TransportConfig struct {
	// Kind is "tcp" or "rtu".
	Kind    string        `mapstructure:"kind"`
	Timeout time.Duration `mapstructure:"timeout"`

	TCP TCPConfig `mapstructure:"tcp"`
	RTU RTUConfig `mapstructure:"rtu"`
}

// TCPConfig parameterizes a transport.TCP or transport.TCPListener.
type TCPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// RTUConfig parameterizes a transport.RTU serial connection.
type RTUConfig struct {
	Device   string `mapstructure:"device"`
	BaudRate int    `mapstructure:"baud_rate"`
	DataBits int    `mapstructure:"data_bits"`
	StopBits int    `mapstructure:"stop_bits"`
	Parity   string `mapstructure:"parity"`
}

// DeviceConfig is the locally-known identity of the meter a client
// talks to, or a server answers as.
type DeviceConfig struct {
	Address     string `mapstructure:"address"`
	PasswordHex string `mapstructure:"password_hex"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// Load reads configuration from path (if non-empty and present), then
// environment variables prefixed DLT645_, falling back to the
// defaults set below. Env vars always win over the file, matching
// viper's own precedence.
func Load(path string) (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("dlt645")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.LogLevel = parseLevel(viper.GetString("log_level"))

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("transport.kind", "tcp")
	viper.SetDefault("transport.timeout", "5s")
	viper.SetDefault("transport.tcp.host", "127.0.0.1")
	viper.SetDefault("transport.tcp.port", 10521)
	viper.SetDefault("transport.rtu.device", "/dev/ttyUSB0")
	viper.SetDefault("transport.rtu.baud_rate", 9600)
	viper.SetDefault("transport.rtu.data_bits", 8)
	viper.SetDefault("transport.rtu.stop_bits", 1)
	viper.SetDefault("transport.rtu.parity", "N")
	viper.SetDefault("device.password_hex", "00000000")
}

func parseLevel(s string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
