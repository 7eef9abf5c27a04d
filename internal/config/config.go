// Package config loads nettype settings from an optional nettype.yaml and
// NETTYPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. NETTYPE_DELIMITER.
const EnvPrefix = "NETTYPE"

// Config represents the nettype configuration
type Config struct {
	// Delimiter separates tokens in filter expressions.
	Delimiter string `mapstructure:"delimiter"`
	// Workers bounds concurrent member selection; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
	// Log is the log level: debug, info, warn, error or fatal.
	Log string `mapstructure:"log"`

	// File is the config file read, empty when defaults were used.
	File string `mapstructure:"-"`
}

// Load reads nettype.yaml from the working directory or
// $HOME/.config/nettype, falling back to defaults when neither exists.
func Load() (*Config, error) {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "nettype"))
	}
	return LoadFrom(paths...)
}

// LoadFrom reads nettype.yaml from the first of paths that holds one.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("delimiter", "|")
	v.SetDefault("workers", 0)
	v.SetDefault("log", "error")

	v.SetConfigName("nettype")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate checks the settings, whether read from file, environment or
// overridden by command line flags.
func (c *Config) Validate() error {
	if c.Delimiter == "" {
		return errors.New("delimiter must not be empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got: %d", c.Workers)
	}
	return nil
}
