package internal

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"http_server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Security    SecurityConfig `mapstructure:"security"`
	Authz       AuthzConfig    `mapstructure:"authz"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Source          string        `mapstructure:"source"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

type SecurityConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// AuthzConfig tunes the permission resolver.
type AuthzConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func (c *Config) Validate() error {
	if c.Database.Source == "" {
		return errors.New("database source is required")
	}
	if c.Security.JWTSecret == "" {
		return errors.New("security jwt_secret is required")
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return errors.New("redis url is required when redis is enabled")
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Authz.CacheTTL <= 0 {
		c.Authz.CacheTTL = time.Hour
	}
	return nil
}

// LoadConfigFromEnv builds configuration from environment variables for
// container deployments.
func LoadConfigFromEnv() *Config {
	return &Config{
		Environment: envString("APP_ENV", "production"),
		Server: ServerConfig{
			Port:         envInt("HTTP_PORT", 8080),
			ReadTimeout:  envDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: envDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Source:          os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:    envBool("REDIS_ENABLED", true),
			URL:        os.Getenv("REDIS_URL"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         envInt("REDIS_DB", 0),
			MaxRetries: envInt("REDIS_MAX_RETRIES", 3),
			PoolSize:   envInt("REDIS_POOL_SIZE", 10),
		},
		Security: SecurityConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Authz: AuthzConfig{
			CacheTTL: envDuration("AUTHZ_CACHE_TTL", time.Hour),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid value for %s: %q, using %d\n", key, v, fallback)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
