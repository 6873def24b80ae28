package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	StoreDriver          string
	MySQLDSN             string
	MySQLMaxOpenConns    int
	MySQLMaxIdleConns    int
	MySQLConnMaxLifetime time.Duration
	AutoMigrate          bool

	// RedisAddr empty disables the Idempotency-Key guard.
	RedisAddr      string
	IdempotencyTTL time.Duration

	LogLevel  string
	LogFormat string

	ShutdownTimeout time.Duration
}

// Load reads the environment, falling back to defaults for unset variables.
// Malformed numbers and durations are reported rather than silently ignored.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:             getEnv("GRPC_ADDR", ":9090"),
		StoreDriver:          getEnv("STORE_DRIVER", DriverMySQL),
		MySQLDSN:             getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/sales?parseTime=true"),
		MySQLMaxOpenConns:    getInt("MYSQL_MAX_OPEN_CONNS", 50, &errs),
		MySQLMaxIdleConns:    getInt("MYSQL_MAX_IDLE_CONNS", 25, &errs),
		MySQLConnMaxLifetime: getDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute, &errs),
		AutoMigrate:          getBool("AUTO_MIGRATE", true, &errs),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		IdempotencyTTL:       getDuration("IDEMPOTENCY_TTL", 24*time.Hour, &errs),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		ShutdownTimeout:      getDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	switch c.StoreDriver {
	case DriverMySQL:
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN is required when STORE_DRIVER=mysql"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMySQL, DriverMemory, c.StoreDriver))
	}
	if c.MySQLMaxOpenConns <= 0 {
		errs = append(errs, errors.New("MYSQL_MAX_OPEN_CONNS must be positive"))
	}
	if c.MySQLMaxIdleConns < 0 {
		errs = append(errs, errors.New("MYSQL_MAX_IDLE_CONNS must not be negative"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
