// Package config содержит логику чтения конфигурации сервиса Fadj Ma.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса Fadj Ma.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	AuthSecret    string `env:"AUTH_SECRET"`
	NotifyAddress string `env:"NOTIFY_ADDRESS"`
	// -1 означает "не задано": ноль — допустимая стоимость доставки.
	DeliveryFee int64 `env:"DELIVERY_FEE" envDefault:"-1"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envAuthSecret := cfg.AuthSecret
	envNotifyAddress := cfg.NotifyAddress
	envDeliveryFee := cfg.DeliveryFee

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth token signing")
	flag.StringVar(&cfg.NotifyAddress, "n", "", "notification webhook address")
	flag.Int64Var(&cfg.DeliveryFee, "f", 2000, "home delivery fee in FCFA")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if envNotifyAddress != "" {
		cfg.NotifyAddress = envNotifyAddress
	}
	if envDeliveryFee >= 0 {
		cfg.DeliveryFee = envDeliveryFee
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.DeliveryFee < 0 {
		cfg.DeliveryFee = 2000
	}

	return cfg, nil
}
