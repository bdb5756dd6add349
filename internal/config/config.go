package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-account-go/internal/sms"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-account-go/pkg/utilities"
)

// Config is the whole process configuration, built once at startup and
// handed to the components that need it.
type Config struct {
	HTTPAddr string             `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	Log      utilities.Config   `envPrefix:"LOG_"`
	Database database.Config    `envPrefix:"DATABASE_"`
	ID       utilities.IDConfig `envPrefix:"ID_"`
	Auth     auth.Config        `envPrefix:"AUTH_"`
	SMS      sms.Config         `envPrefix:"SMS_"`
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	// best-effort: a missing .env leaves the real environment untouched
	_ = godotenv.Load()
	return Parse()
}

// Parse reads configuration from environment variables only.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// SenderOnly parses the subset needed by commands that only send SMS, so they
// do not require AUTH_SECRET_KEY.
func SenderOnly() (*sms.Config, *utilities.Config, error) {
	_ = godotenv.Load()
	var cfg struct {
		Log utilities.Config `envPrefix:"LOG_"`
		SMS sms.Config       `envPrefix:"SMS_"`
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg.SMS, &cfg.Log, nil
}
