// Package config содержит логику чтения конфигурации сервиса выплат.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса выплат.
type Config struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	MestaBaseURL   string        `env:"MESTA_BASE_URL"`
	MestaAPIKey    string        `env:"MESTA_API_KEY"`
	MestaAPISecret string        `env:"MESTA_API_SECRET"`
	JWTSecret      string        `env:"JWT_SECRET"`
	SyncInterval   time.Duration `env:"SYNC_INTERVAL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envMestaBaseURL := cfg.MestaBaseURL
	envMestaAPIKey := cfg.MestaAPIKey
	envMestaAPISecret := cfg.MestaAPISecret
	envJWTSecret := cfg.JWTSecret
	envSyncInterval := cfg.SyncInterval

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.MestaBaseURL, "m", "", "Mesta API base URL")
	flag.StringVar(&cfg.MestaAPIKey, "k", "", "Mesta API key")
	flag.StringVar(&cfg.MestaAPISecret, "s", "", "Mesta API secret")
	flag.StringVar(&cfg.JWTSecret, "j", "", "JWT signing secret")
	flag.DurationVar(&cfg.SyncInterval, "i", 0, "transaction sync interval")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envMestaBaseURL != "" {
		cfg.MestaBaseURL = envMestaBaseURL
	}
	if envMestaAPIKey != "" {
		cfg.MestaAPIKey = envMestaAPIKey
	}
	if envMestaAPISecret != "" {
		cfg.MestaAPISecret = envMestaAPISecret
	}
	if envJWTSecret != "" {
		cfg.JWTSecret = envJWTSecret
	}
	if envSyncInterval != 0 {
		cfg.SyncInterval = envSyncInterval
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = time.Minute
	}

	return cfg, nil
}
