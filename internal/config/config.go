// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"DB_PATH" envDefault:"./data/ledger.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`

	// JWTSecret enables bearer-token auth; empty runs without authentication.
	JWTSecret   string        `env:"JWT_SECRET"`
	JWTDuration time.Duration `env:"JWT_DURATION" envDefault:"24h"`
	// AuthOptional accepts anonymous callers while still validating tokens that are sent.
	AuthOptional bool `env:"AUTH_OPTIONAL" envDefault:"false"`

	LedgerMaxRetries      int  `env:"LEDGER_MAX_RETRIES" envDefault:"3"`
	SplitRemainderToPayer bool `env:"SPLIT_REMAINDER_TO_PAYER" envDefault:"false"`
}

// Load parses the process environment.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Validate checks combinations that env tags cannot express.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.LedgerMaxRetries < 0 {
		return fmt.Errorf("LEDGER_MAX_RETRIES must not be negative")
	}
	return nil
}

// AuthEnabled reports whether requests must carry a valid bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
