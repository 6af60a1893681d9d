// Package config loads process configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds settings shared by every dispenser command.
type Config struct {
	LogLevel    string `env:"DISPENSER_LOG_LEVEL"    envDefault:"info"`
	LogFormat   string `env:"DISPENSER_LOG_FORMAT"   envDefault:"text"`
	MetricsAddr string `env:"DISPENSER_METRICS_ADDR"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
