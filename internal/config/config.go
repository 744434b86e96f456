// Package config loads service configuration from a yaml file and the
// environment. Environment variables override file values (SERVER_PORT,
// DATABASE_URL, REDIS_URL, ...).
package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the trade engine.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Risk     Risk     `mapstructure:"risk"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Port            int `mapstructure:"port"`
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int `mapstructure:"idle_timeout_sec"`
	RequestTimeout  int `mapstructure:"request_timeout_sec"`
}

// Database holds the PostgreSQL connection configuration. An empty URL
// selects the in-memory store.
type Database struct {
	URL string `mapstructure:"url"`
}

// Redis holds the cache configuration. An empty URL disables caching.
type Redis struct {
	URL          string `mapstructure:"url"`
	CacheTTLSecs int    `mapstructure:"cache_ttl_sec"`
}

// Risk holds the notional limits applied to order flow.
// Zero disables the corresponding check.
type Risk struct {
	MaxOrderNotional  float64 `mapstructure:"max_order_notional"`
	MaxMarketExposure float64 `mapstructure:"max_market_exposure"`
}

// Load reads configuration from config.yml in path (optional) with
// environment variable overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout_sec", 10)
	v.SetDefault("server.write_timeout_sec", 10)
	v.SetDefault("server.idle_timeout_sec", 60)
	v.SetDefault("server.request_timeout_sec", 30)
	v.SetDefault("redis.cache_ttl_sec", 30)
	v.SetDefault("risk.max_order_notional", 10000)
	v.SetDefault("risk.max_market_exposure", 50000)

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; env vars and defaults still apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
	}

	err := v.Unmarshal(&cfg)
	return cfg, err
}
