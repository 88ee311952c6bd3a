package main

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var errInvalidConfig = errors.New("invalid configuration")

// Config is read from LRUSIM_-prefixed environment variables, optionally seeded from a .env file.
type Config struct {
	Capacity     int     `env:"CAPACITY" envDefault:"1000"`
	Shards       int     `env:"SHARDS" envDefault:"0"` // 0 selects a single Synced cache
	Keys         int     `env:"KEYS" envDefault:"10000"`
	Ops          int     `env:"OPS" envDefault:"1000000"`
	ReadRatio    float64 `env:"READ_RATIO" envDefault:"0.8"`
	Distribution string  `env:"DISTRIBUTION" envDefault:"zipf"`
	ZipfS        float64 `env:"ZIPF_S" envDefault:"1.1"`
	Seed         int64   `env:"SEED" envDefault:"1"`
	Workers      int     `env:"WORKERS" envDefault:"1"`
	LogLevel     string  `env:"LOG_LEVEL" envDefault:"info"`
}

// loadConfig parses environ, or the process environment when environ is nil.
func loadConfig(environ map[string]string) (Config, error) {
	if environ == nil {
		// the .env file is optional
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      "LRUSIM_",
		Environment: environ,
	}); err != nil {
		return Config{}, errors.Join(errInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.Capacity < 1:
		return fmt.Errorf("%w: capacity must be positive, got %d", errInvalidConfig, c.Capacity)
	case c.Shards < 0:
		return fmt.Errorf("%w: shards must not be negative, got %d", errInvalidConfig, c.Shards)
	case c.Ops < 0:
		return fmt.Errorf("%w: ops must not be negative, got %d", errInvalidConfig, c.Ops)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", errInvalidConfig, c.Workers)
	}
	return nil
}
