package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"nearby/internal/app/user"
)

// defaultCenter is the point simulated users are scattered around.
var defaultCenter = user.Position{Lat: 37.24958126229168, Lng: 127.02893793201447}

// Config controls one load-generation run.
type Config struct {
	URL         string  `env:"WS_URL" env-default:"ws://localhost:8080/ws"`
	Users       int     `env:"USERS" env-default:"30"`
	Hz          float64 `env:"HZ" env-default:"1"`
	DurationSec int     `env:"DURATION" env-default:"30"`
	SpreadM     float64 `env:"SPREAD_M" env-default:"50"`
	StepM       float64 `env:"STEP_M" env-default:"2"`
}

// Duration is the total run time.
func (c Config) Duration() time.Duration {
	return time.Duration(c.DurationSec) * time.Second
}

// Interval is the time between two location updates of one user.
func (c Config) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.Hz)
}

// loadConfig reads envPath when it exists and the process environment otherwise.
func loadConfig(envPath string) (Config, error) {
	var cfg Config

	if _, err := os.Stat(envPath); err == nil {
		if err := cleanenv.ReadConfig(envPath, &cfg); err != nil {
			return cfg, fmt.Errorf("cannot read %s: %w", envPath, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("cannot read environment: %w", err)
	}

	switch {
	case cfg.Users <= 0:
		return cfg, errors.New("USERS must be positive")
	case cfg.Hz <= 0:
		return cfg, errors.New("HZ must be positive")
	case cfg.DurationSec <= 0:
		return cfg, errors.New("DURATION must be positive")
	}

	return cfg, nil
}
