// Package config loads server settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Imellstorm/wptest/internal/auth"
	"github.com/Imellstorm/wptest/internal/catalog"
)

// Store backends
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Env          string `mapstructure:"env"`
	Debug        bool   `mapstructure:"debug"`
	Port         string `mapstructure:"port"`
	GRPCPort     string `mapstructure:"grpc_port"`
	DatabasePath string `mapstructure:"database_path"`
	StoreBackend string `mapstructure:"store_backend"`
	RedisAddr    string `mapstructure:"redis_addr"`
	AuthMode     string `mapstructure:"auth_mode"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	// Requests per minute per client on write routes
	RateLimit int `mapstructure:"rate_limit"`
	// Overrides the default catalog when set
	Catalog []catalog.ItemKind `mapstructure:"catalog"`
}

// Production reports whether ENV=production
func (c *Config) Production() bool {
	return c.Env == "production"
}

// BuildCatalog returns the configured catalog or the default one
func (c *Config) BuildCatalog() (*catalog.Catalog, error) {
	if len(c.Catalog) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Catalog...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("debug", false)
	v.SetDefault("port", "8080")
	v.SetDefault("grpc_port", "9090")
	v.SetDefault("database_path", "island.db")
	v.SetDefault("store_backend", BackendSQL)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("auth_mode", auth.ModePermitAll)
	v.SetDefault("jwt_secret", "island-secret-key")
	v.SetDefault("rate_limit", 600)
}

// Load reads settings from v. Environment variables (PORT, STORE_BACKEND, ...)
// override the config file, which overrides the defaults. An empty file
// path skips the file.
func Load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSQL, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.AuthMode {
	case auth.ModePermitAll:
	case auth.ModeJWT:
		if c.JWTSecret == "" {
			return errors.New("jwt auth mode needs JWT_SECRET")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}

	if c.RateLimit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if _, err := c.BuildCatalog(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}
