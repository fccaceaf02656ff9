// Package config loads the walkcity service configuration using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up in the working directory
const DefaultPath = "walkcity.yml"

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverDynamoDB = "dynamodb"
)

// Config holds all configuration values for walkcity.
type Config struct {
	LogLevel string        `mapstructure:"log_level" yaml:"log_level"`
	Server   ServerConfig  `mapstructure:"server" yaml:"server"`
	History  HistoryConfig `mapstructure:"history" yaml:"history"`
	Loader   LoaderConfig  `mapstructure:"loader" yaml:"loader"`
	Map      MapConfig     `mapstructure:"map" yaml:"map"`
	Store    StoreConfig   `mapstructure:"store" yaml:"store"`
	Export   ExportConfig  `mapstructure:"export" yaml:"export"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type HistoryConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

type LoaderConfig struct {
	MaxRetries     int `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelayMs   int `mapstructure:"retry_delay_ms" yaml:"retry_delay_ms"`
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

type MapConfig struct {
	FailureRate float64 `mapstructure:"failure_rate" yaml:"failure_rate"`
	LatencyMs   int     `mapstructure:"latency_ms" yaml:"latency_ms"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	Table  string `mapstructure:"table" yaml:"table"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns the configuration used when no file or env var overrides a key
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server:   ServerConfig{Addr: ":8080"},
		History:  HistoryConfig{Capacity: walkflow.DefaultHistoryCapacity},
		Loader: LoaderConfig{
			MaxRetries:     walkflow.DefaultLoaderConfig.MaxRetries,
			RetryDelayMs:   walkflow.DefaultLoaderConfig.RetryDelayMs,
			TimeoutSeconds: walkflow.DefaultLoaderConfig.TimeoutSeconds,
		},
		Map:    MapConfig{FailureRate: 0.05, LatencyMs: 800},
		Store:  StoreConfig{Driver: StoreDriverMemory, Table: "walkcity-submissions"},
		Export: ExportConfig{Dir: "exports"},
	}
}

// Load loads configuration with precedence ENV vars > config file > defaults.
// An empty path reads DefaultPath when it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, Default())

	// WALKCITY_LOADER_MAX_RETRIES overrides loader.max_retries
	v.SetEnvPrefix("WALKCITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" && fileExists(DefaultPath) {
		path = DefaultPath
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("history.capacity", d.History.Capacity)
	v.SetDefault("loader.max_retries", d.Loader.MaxRetries)
	v.SetDefault("loader.retry_delay_ms", d.Loader.RetryDelayMs)
	v.SetDefault("loader.timeout_seconds", d.Loader.TimeoutSeconds)
	v.SetDefault("map.failure_rate", d.Map.FailureRate)
	v.SetDefault("map.latency_ms", d.Map.LatencyMs)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.table", d.Store.Table)
	v.SetDefault("export.dir", d.Export.Dir)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Loader.MaxRetries < 0 {
		return fmt.Errorf("loader.max_retries must not be negative, got %d", c.Loader.MaxRetries)
	}
	if c.Loader.RetryDelayMs < 0 || c.Loader.TimeoutSeconds < 0 {
		return fmt.Errorf("loader delays must not be negative")
	}
	if c.Map.FailureRate < 0 || c.Map.FailureRate > 1 {
		return fmt.Errorf("map.failure_rate must be within [0, 1], got %g", c.Map.FailureRate)
	}
	if c.Map.LatencyMs < 0 {
		return fmt.Errorf("map.latency_ms must not be negative, got %d", c.Map.LatencyMs)
	}
	switch c.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverDynamoDB:
		if c.Store.Table == "" {
			return fmt.Errorf("store.table is required for the dynamodb driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// LoaderPolicy converts the loader section to the retry policy used by loader.Loader
func (c *Config) LoaderPolicy() walkflow.LoaderConfig {
	return walkflow.LoaderConfig{
		MaxRetries:     c.Loader.MaxRetries,
		RetryDelayMs:   c.Loader.RetryDelayMs,
		RetryBackoff:   walkflow.BackoffConstant,
		TimeoutSeconds: c.Loader.TimeoutSeconds,
	}
}

// Level returns the parsed log level, falling back to info
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Write writes cfg as YAML to path
func Write(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
