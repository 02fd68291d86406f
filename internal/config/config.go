// Package config loads and validates the dashboard configuration from a
// YAML file and DASHBOARD_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full dashboard configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Tenants TenantsConfig `mapstructure:"tenants"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	ListenAddr           string `mapstructure:"listen_addr"`
	HeartbeatIntervalSec int    `mapstructure:"heartbeat_interval_sec"`
}

type WatchConfig struct {
	// Kubeconfig path; empty means in-cluster configuration.
	Kubeconfig string `mapstructure:"kubeconfig"`

	// ReconnectDelayMs is the fixed pause before a failed watch restarts.
	ReconnectDelayMs int `mapstructure:"reconnect_delay_ms"`
}

type TenantsConfig struct {
	// CacheTTLSec bounds staleness of cached tenant resolutions.
	CacheTTLSec int `mapstructure:"cache_ttl_sec"`

	// Static is the token table for the built-in resolver.
	Static []StaticTenant `mapstructure:"static"`
}

type StaticTenant struct {
	Token        string `mapstructure:"token"`
	User         string `mapstructure:"user"`
	Organization string `mapstructure:"organization"`
	Role         string `mapstructure:"role"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the given file (optional) and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.heartbeat_interval_sec", 30)
	v.SetDefault("watch.reconnect_delay_ms", 100)
	v.SetDefault("tenants.cache_ttl_sec", 30)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("config: server.listen_addr must not be empty")
	}
	if c.Server.HeartbeatIntervalSec <= 0 {
		return errors.New("config: server.heartbeat_interval_sec must be positive")
	}
	if c.Watch.ReconnectDelayMs <= 0 {
		return errors.New("config: watch.reconnect_delay_ms must be positive")
	}
	seen := make(map[string]bool, len(c.Tenants.Static))
	for i, t := range c.Tenants.Static {
		if t.Token == "" {
			return fmt.Errorf("config: tenants.static[%d].token must not be empty", i)
		}
		if seen[t.Token] {
			return fmt.Errorf("config: tenants.static[%d].token is duplicated", i)
		}
		seen[t.Token] = true
		if t.Organization == "" {
			return fmt.Errorf("config: tenants.static[%d].organization must not be empty", i)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}

// HeartbeatInterval returns the heartbeat interval as a duration.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Server.HeartbeatIntervalSec) * time.Second
}

// ReconnectDelay returns the watch reconnect delay as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Watch.ReconnectDelayMs) * time.Millisecond
}

// TenantCacheTTL returns the tenant cache TTL as a duration.
func (c *Config) TenantCacheTTL() time.Duration {
	return time.Duration(c.Tenants.CacheTTLSec) * time.Second
}
