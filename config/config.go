// Package config loads application configuration from files and QCACHE_*
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/agentuity/go-common/logger"
	"github.com/cockroachdb/errors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"

	"github.com/goliatone/go-query-cache/cache"
	"github.com/goliatone/go-query-cache/connection"
)

const (
	envPrefix      = "QCACHE"
	configFileName = "qcache"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the top-level configuration.
type Config struct {
	LogLevel    string                         `mapstructure:"log_level" json:"log_level"`
	Cache       CacheConfig                    `mapstructure:"cache" json:"cache"`
	Connections map[string]connection.Settings `mapstructure:"connections" json:"connections"`
}

// CacheConfig selects and tunes the cache store.
type CacheConfig struct {
	Backend            string        `mapstructure:"backend" json:"backend"`
	Capacity           int           `mapstructure:"capacity" json:"capacity"`
	NumShards          int           `mapstructure:"num_shards" json:"num_shards"`
	TTL                time.Duration `mapstructure:"ttl" json:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage" json:"eviction_percentage"`
	EvictionInterval   time.Duration `mapstructure:"eviction_interval" json:"eviction_interval"`
	Redis              RedisConfig   `mapstructure:"redis" json:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"password"`
	DB       int           `mapstructure:"db" json:"db"`
	Prefix   string        `mapstructure:"prefix" json:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl"`
}

var _ connection.Resolver = Config{}

// Default returns the configuration used when nothing is set.
func Default() Config {
	mem := cache.DefaultConfig()
	return Config{
		LogLevel: "info",
		Cache: CacheConfig{
			Backend:            BackendMemory,
			Capacity:           mem.Capacity,
			NumShards:          mem.NumShards,
			TTL:                mem.TTL,
			EvictionPercentage: mem.EvictionPercentage,
			EvictionInterval:   mem.EvictionInterval,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "qcache",
				TTL:    mem.TTL,
			},
		},
		Connections: map[string]connection.Settings{},
	}
}

// Load reads configuration from path, or from qcache.{yaml,json,toml} in the
// working directory and $HOME/.config/qcache when path is empty. A missing
// file is not an error when path is empty. Environment variables such as
// QCACHE_CACHE_BACKEND override file values. The result is validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/qcache")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if cfg.Connections == nil {
		cfg.Connections = map[string]connection.Settings{}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.num_shards", d.Cache.NumShards)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.eviction_percentage", d.Cache.EvictionPercentage)
	v.SetDefault("cache.eviction_interval", d.Cache.EvictionInterval)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.prefix", d.Cache.Redis.Prefix)
	v.SetDefault("cache.redis.ttl", d.Cache.Redis.TTL)
}

// Validate checks every section.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogLevel, validation.Required, validation.In("trace", "debug", "info", "warn", "error", "none")),
		validation.Field(&c.Cache),
		validation.Field(&c.Connections),
	)
}

// Validate checks the cache section. The in-memory limits apply to both
// backends since the memory store remains the fallback.
func (c CacheConfig) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis)),
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Nanosecond)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
	}
	if c.Backend == BackendRedis {
		fields = append(fields, validation.Field(&c.Redis))
	}
	return validation.ValidateStruct(&c, fields...)
}

// Validate checks the redis section.
func (c RedisConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.DB, validation.Min(0)),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
	)
}

// ByKey resolves a connection key; Config is the application's
// connection.Resolver.
func (c Config) ByKey(key string) (connection.Settings, error) {
	return connection.Static(c.Connections).ByKey(key)
}

// StoreConfig returns the in-memory store configuration.
func (c Config) StoreConfig() cache.Config {
	return cache.Config{
		Capacity:           c.Cache.Capacity,
		NumShards:          c.Cache.NumShards,
		TTL:                c.Cache.TTL,
		EvictionPercentage: c.Cache.EvictionPercentage,
		EvictionInterval:   c.Cache.EvictionInterval,
	}
}

// Level maps LogLevel to a logger level. Unknown values map to info.
func (c Config) Level() logger.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "trace":
		return logger.LevelTrace
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	case "none":
		return logger.LevelNone
	default:
		return logger.LevelInfo
	}
}
