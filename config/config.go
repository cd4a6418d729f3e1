// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"neoShop/storage"
)

// MinTokenSecretLength is the shortest HS256 signing secret accepted.
const MinTokenSecretLength = 32

type Config struct {
	ServerHost string `env:"SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	Env        string `env:"ENV" envDefault:"development"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	StorageDriver  string        `env:"STORAGE_DRIVER" envDefault:"memory"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`

	DatabaseHost     string `env:"DATABASE_HOST" envDefault:"localhost"`
	DatabasePort     string `env:"DATABASE_PORT" envDefault:"5432"`
	DatabaseUser     string `env:"DATABASE_USER"`
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	DatabaseName     string `env:"DATABASE_NAME" envDefault:"neoshop"`
	SQLitePath       string `env:"SQLITE_PATH" envDefault:"./data/neoshop.db"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"neoshop:"`

	TokenSecret      string  `env:"TOKEN_SECRET,required"`
	AdminEmailPrefix string  `env:"ADMIN_EMAIL_PREFIX" envDefault:"admin1"`
	LoginRateLimit   float64 `env:"LOGIN_RATE_LIMIT" envDefault:"1"` // requests per second per IP
	LoginBurst       int     `env:"LOGIN_BURST" envDefault:"5"`
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c Config) ServerAddr() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

func (c Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// PostgresDSN builds the connection string from the DATABASE_* variables.
func (c Config) PostgresDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:     net.JoinHostPort(c.DatabaseHost, c.DatabasePort),
		Path:     "/" + c.DatabaseName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:        c.StorageDriver,
		RedisAddr:     c.RedisAddr(),
		RedisPassword: c.RedisPassword,
		RedisPrefix:   c.RedisPrefix,
		PostgresDSN:   c.PostgresDSN(),
		SQLitePath:    c.SQLitePath,
	}
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads an optional .env file, then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.TokenSecret) < MinTokenSecretLength {
		return fmt.Errorf("TOKEN_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secret with: openssl rand -base64 32", MinTokenSecretLength, len(c.TokenSecret))
	}
	switch c.StorageDriver {
	case storage.DriverMemory, storage.DriverRedis, storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of memory, redis, postgres, sqlite; got %q", c.StorageDriver)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.StorageTimeout <= 0 {
		return errors.New("STORAGE_TIMEOUT must be positive")
	}
	if c.LoginRateLimit <= 0 || c.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_BURST must be positive")
	}
	return nil
}
