package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Store    StoreConfig    `yaml:"store"`
	Provider ProviderConfig `yaml:"provider"`
	Poller   PollerConfig   `yaml:"poller"`
	Viewer   ViewerConfig   `yaml:"viewer"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StoreConfig struct {
	Driver string       `yaml:"driver"`
	Sqlite SqliteConfig `yaml:"sqlite"`
	Redis  RedisConfig  `yaml:"redis"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

type ProviderConfig struct {
	BaseURLs  []string `yaml:"base_urls"`
	TimeoutMs int      `yaml:"timeout_ms"`
}

type PollerConfig struct {
	Port              int `yaml:"port"`
	PollIntervalSec   int `yaml:"poll_interval_sec"`
	RotateIntervalSec int `yaml:"rotate_interval_sec"`
}

type ViewerConfig struct {
	Port               int `yaml:"port"`
	RefreshIntervalSec int `yaml:"refresh_interval_sec"`
	RetryDelayMs       int `yaml:"retry_delay_ms"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

func (p PollerConfig) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSec) * time.Second
}

func (p PollerConfig) RotateInterval() time.Duration {
	return time.Duration(p.RotateIntervalSec) * time.Second
}

func (v ViewerConfig) RefreshInterval() time.Duration {
	return time.Duration(v.RefreshIntervalSec) * time.Second
}

func (v ViewerConfig) RetryDelay() time.Duration {
	return time.Duration(v.RetryDelayMs) * time.Millisecond
}

// Default returns the configuration used when no file overrides a key.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver: "sqlite",
			Sqlite: SqliteConfig{Path: "data/ticker.db"},
			Redis:  RedisConfig{Addr: "localhost:6379"},
		},
		Provider: ProviderConfig{
			BaseURLs: []string{
				"https://query1.finance.yahoo.com",
				"https://query2.finance.yahoo.com",
			},
			TimeoutMs: 5000,
		},
		Poller: PollerConfig{
			Port:              8081,
			PollIntervalSec:   60,
			RotateIntervalSec: 5,
		},
		Viewer: ViewerConfig{
			Port:               8080,
			RefreshIntervalSec: 10,
			RetryDelayMs:       2000,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Sqlite.Path == "" {
			errs = append(errs, errors.New("store.sqlite.path is empty"))
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if len(c.Provider.BaseURLs) == 0 {
		errs = append(errs, errors.New("provider.base_urls is empty"))
	}
	if c.Provider.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("provider.timeout_ms must be positive, got %d", c.Provider.TimeoutMs))
	}
	if !validPort(c.Poller.Port) {
		errs = append(errs, fmt.Errorf("invalid poller.port: %d", c.Poller.Port))
	}
	if !validPort(c.Viewer.Port) {
		errs = append(errs, fmt.Errorf("invalid viewer.port: %d", c.Viewer.Port))
	}
	if c.Poller.PollIntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("poller.poll_interval_sec must be positive, got %d", c.Poller.PollIntervalSec))
	}
	if c.Poller.RotateIntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("poller.rotate_interval_sec must be positive, got %d", c.Poller.RotateIntervalSec))
	}
	if c.Viewer.RefreshIntervalSec <= 0 {
		errs = append(errs, fmt.Errorf("viewer.refresh_interval_sec must be positive, got %d", c.Viewer.RefreshIntervalSec))
	}
	if c.Viewer.RetryDelayMs <= 0 {
		errs = append(errs, fmt.Errorf("viewer.retry_delay_ms must be positive, got %d", c.Viewer.RetryDelayMs))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("POLLER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || !validPort(p) {
			return fmt.Errorf("invalid POLLER_PORT: %q", v)
		}
		cfg.Poller.Port = p
	}
	if v := os.Getenv("VIEWER_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || !validPort(p) {
			return fmt.Errorf("invalid VIEWER_PORT: %q", v)
		}
		cfg.Viewer.Port = p
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Store.Sqlite.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Store.Redis.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}
