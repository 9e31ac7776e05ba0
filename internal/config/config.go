// Package config loads gamecrate's process configuration from
// ~/.config/gamecrate/config.yaml and GAMECRATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/nikbrunner/gamecrate/internal/logger"
	"github.com/nikbrunner/gamecrate/internal/storage"
)

// Config holds all process configuration.
type Config struct {
	Data    DataConfig    `mapstructure:"data"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
	Locale  string        `mapstructure:"locale"`
}

// DataConfig selects the collection storage.
type DataConfig struct {
	Backend string `mapstructure:"backend"` // "sqlite" or "bolt"
	Path    string `mapstructure:"path"`
}

// CatalogConfig locates the raw catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration. An empty File logs to stderr.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultDir returns the default config directory: ~/.config/gamecrate
func DefaultDir() string {
	dir, err := storage.DefaultDataDir()
	if err != nil {
		return "."
	}
	return dir
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("data.backend", storage.BackendSQLite)
	v.SetDefault("data.path", "")
	v.SetDefault("catalog.path", filepath.Join(dir, "catalog.json"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logger.FormatText)
	v.SetDefault("logging.file", "")
	v.SetDefault("locale", "ja")
}

// Load reads config.yaml from dir (DefaultDir when empty), then applies
// GAMECRATE_ environment overrides such as GAMECRATE_DATA_BACKEND.
// A missing config file is not an error.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("GAMECRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.Data.Path == "" {
		cfg.Data.Path = filepath.Join(dir, defaultDataFile(cfg.Data.Backend))
	}
	cfg.Data.Path = expandHome(cfg.Data.Path)
	cfg.Catalog.Path = expandHome(cfg.Catalog.Path)

	return cfg, nil
}

func defaultDataFile(backend string) string {
	if backend == storage.BackendBolt {
		return "gamecrate.bolt"
	}
	return "gamecrate.db"
}

// Validate rejects unknown backends and log levels.
func (c *Config) Validate() error {
	switch c.Data.Backend {
	case storage.BackendSQLite, storage.BackendBolt:
	default:
		return fmt.Errorf("invalid data.backend %q: must be %s or %s",
			c.Data.Backend, storage.BackendSQLite, storage.BackendBolt)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid logging.format %q: must be %s or %s",
			c.Logging.Format, logger.FormatText, logger.FormatJSON)
	}
	return nil
}

// LoggerConfig converts the logging section for logger.Open.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
