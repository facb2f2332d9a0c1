// Package config loads schemav settings from a config file and SCHEMAV_*
// environment variables.
//
// A config file is optional. Without an explicit path, schemav.{yaml,toml,json}
// is looked up in ./.schemav and then $HOME/.config/schemav. Environment
// variables override file values: store.driver is SCHEMAV_STORE_DRIVER.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCHEMAV"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config is the full set of settings.
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Log   LogConfig   `mapstructure:"log"`
	Watch WatchConfig `mapstructure:"watch"`

	// Targets maps a shape family to the version documents are read at.
	Targets map[string]int `mapstructure:"targets"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	Path       string `mapstructure:"path"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", ".schemav/schemav.db")
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "schemav")
	v.SetDefault("store.collection", "documents")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)

	v.SetDefault("watch.debounce", "200ms")
	v.SetDefault("targets", map[string]int{})
}

// New returns a viper instance with defaults, environment binding and the
// config file read. path may be empty.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("schemav")
		v.AddConfigPath(".schemav")
		v.AddConfigPath("$HOME/.config/schemav")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if cfg.Targets == nil {
		cfg.Targets = map[string]int{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is New followed by FromViper.
func Load(path string) (*Config, error) {
	v, err := New(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite driver")
		}
	case DriverMongo:
		if c.Store.URI == "" || c.Store.Database == "" || c.Store.Collection == "" {
			return errors.New("store.uri, store.database and store.collection are required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q (want %s, %s or %s)",
			c.Store.Driver, DriverMemory, DriverSQLite, DriverMongo)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits cannot be negative")
	}

	for family, v := range c.Targets {
		if v < 1 {
			return fmt.Errorf("targets.%s must be at least 1, got %d", family, v)
		}
	}

	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	return nil
}

// Target returns the configured version for family, or fallback when none
// is set.
func (c *Config) Target(family string, fallback int) int {
	if v, ok := c.Targets[strings.ToLower(family)]; ok {
		return v
	}
	return fallback
}

// Watch calls fn with the re-read settings each time the config file
// changes. It does nothing when no file was read.
func Watch(v *viper.Viper, fn func(*Config, error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		fn(FromViper(v))
	})
	v.WatchConfig()
}
