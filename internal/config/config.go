// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// MCUCONSOLE_SERIAL_PORT or MCUCONSOLE_LOGGING_LEVEL.
const EnvPrefix = "MCUCONSOLE"

// Config represents the application configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Capture CaptureConfig `mapstructure:"capture"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
}

// SerialConfig presets the port and baud rate. Empty/zero values are
// negotiated interactively.
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// SessionConfig tunes the session loop
type SessionConfig struct {
	Pause time.Duration `mapstructure:"pause"`
	Stats bool          `mapstructure:"stats"`
	Echo  bool          `mapstructure:"echo"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// CaptureConfig enables recording of transmitted frames
type CaptureConfig struct {
	File string `mapstructure:"file"`
}

// BridgeConfig selects a WebSocket serial bridge instead of a local port
type BridgeConfig struct {
	URL         string `mapstructure:"url"`
	Username    string `mapstructure:"username"`
	NoSSLVerify bool   `mapstructure:"no_ssl_verify"`
}

// flagKeys maps command-line flag names to configuration keys
var flagKeys = map[string]string{
	"port":          "serial.port",
	"baud":          "serial.baud",
	"pause":         "session.pause",
	"stats":         "session.stats",
	"echo":          "session.echo",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"log-output":    "logging.output",
	"capture":       "capture.file",
	"url":           "bridge.url",
	"username":      "bridge.username",
	"no-ssl-verify": "bridge.no_ssl_verify",
}

// Load reads configuration from defaults, an optional YAML file,
// MCUCONSOLE_* environment variables and flags, in increasing priority.
// An empty path searches ./mcuconsole.yaml and
// $HOME/.config/mcuconsole/mcuconsole.yaml and tolerates neither existing.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("mcuconsole")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mcuconsole")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.port", "")
	v.SetDefault("serial.baud", 0)

	v.SetDefault("session.pause", "500ms")
	v.SetDefault("session.stats", false)
	v.SetDefault("session.echo", false)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	v.SetDefault("capture.file", "")

	v.SetDefault("bridge.url", "")
	v.SetDefault("bridge.username", "")
	v.SetDefault("bridge.no_ssl_verify", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud must not be negative")
	}
	if config.Session.Pause < 0 {
		return fmt.Errorf("session.pause must not be negative")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	validFormats := []string{"json", "console"}
	if !contains(validFormats, config.Logging.Format) {
		return fmt.Errorf("logging.format must be one of: %v", validFormats)
	}

	if config.Bridge.URL != "" && config.Serial.Port != "" {
		return fmt.Errorf("serial.port and bridge.url are mutually exclusive")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
