package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"courier"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"courier_dev_password"`
	DBName     string `envconfig:"DB_NAME" default:"courier"`
	JWTSecret  string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
