// Package config loads cbrconv settings from defaults, an optional YAML file
// and CBRCONV_* environment variables, in increasing order of precedence.
package config

import (
	"cbr-rate-converter/cbr"
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Source SourceConfig `mapstructure:"source" yaml:"source"`
	Cache  CacheConfig  `mapstructure:"cache"  yaml:"cache"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Log    LogConfig    `mapstructure:"log"    yaml:"log"`
}

// SourceConfig describes where and how the rate page is fetched.
type SourceConfig struct {
	URL       string        `mapstructure:"url"        yaml:"url"`
	Timeout   time.Duration `mapstructure:"timeout"    yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"` // empty means the built-in browser string
}

// CacheConfig holds the rate table reuse policy.
type CacheConfig struct {
	MaxAge time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "logfmt" or "json"
}

// EnvPrefix prefixes every environment override, e.g. CBRCONV_SOURCE_TIMEOUT=5s.
const EnvPrefix = "CBRCONV"

// Load reads the configuration. With an empty path the file is looked up as
// config.yaml in the working directory and then in ~/.cbrconv; a missing file
// is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".cbrconv"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", cbr.DefaultURL)
	v.SetDefault("source.timeout", cbr.DefaultTimeout)
	v.SetDefault("source.user_agent", "")

	// the rates are published once a day; an hour is plenty
	v.SetDefault("cache.max_age", time.Hour)

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "logfmt")
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return errors.New("config: source.url is required")
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("config: source.timeout must be positive, got %v", c.Source.Timeout)
	}
	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("config: cache.max_age must not be negative, got %v", c.Cache.MaxAge)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log.level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "logfmt", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}
