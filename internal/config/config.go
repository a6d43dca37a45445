// Package config handles configuration for the bookkeep CLI. It uses Viper
// to read settings from environment variables and an optional .env file, so
// the same knobs work for interactive use and cron-driven maintenance.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds the configuration variables for bookkeep.
// These values are loaded from environment variables.
type Config struct {
	// DBPath is the SQLite database location.
	DBPath string `mapstructure:"DB_PATH"`

	// LogLevel selects the slog level: debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// while a command runs. Empty disables the listener.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`

	// DefaultBook is the book new entries are recorded in when the
	// --book flag is not given.
	DefaultBook string `mapstructure:"DEFAULT_BOOK"`
}

// Load reads configuration from environment variables and an optional .env
// file in the given path. Missing files are fine; the defaults cover them.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("DB_PATH", "./data/bookkeep.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("METRICS_ADDR", "")
	v.SetDefault("DEFAULT_BOOK", "default")

	for _, key := range []string{"DB_PATH", "LOG_LEVEL", "METRICS_ADDR", "DEFAULT_BOOK"} {
		_ = v.BindEnv(key)
	}

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
