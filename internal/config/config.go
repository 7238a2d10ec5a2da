package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

// Development fallbacks. Refused by Validate when running in production.
const (
	DevJWTSecret     = "your-secret-key"
	DevEncryptionKey = "default-key-32-character-minimum"
)

var knownWeakSecrets = []string{
	DevJWTSecret, DevEncryptionKey, "change-me", "secret", "password",
}

type Config struct {
	Port                int    `env:"PORT" envDefault:"3001"`
	AppEnv              string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	DatabaseAutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`
	RedisURL            string `env:"REDIS_URL"`
	JWTSecret           string `env:"JWT_SECRET" envDefault:"your-secret-key"`
	EncryptionKey       string `env:"ENCRYPTION_KEY" envDefault:"default-key-32-character-minimum"`
	SendGridAPIKey      string `env:"SENDGRID_API_KEY"`
	FromEmail           string `env:"FROM_EMAIL" envDefault:"noreply@aimonitor.com"`
	FrontendURL         string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func (c *Config) Validate(isProduction bool) error {
	if c.FrontendURL != "" && !strings.HasPrefix(c.FrontendURL, "http://") && !strings.HasPrefix(c.FrontendURL, "https://") {
		return fmt.Errorf("FRONTEND_URL must be an absolute http(s) URL")
	}

	if !isProduction {
		if c.JWTSecret == DevJWTSecret || c.EncryptionKey == DevEncryptionKey {
			log.Warn().Msg("using development secrets: never deploy this configuration")
		}
		return nil
	}

	if err := validateSecret("JWT_SECRET", c.JWTSecret); err != nil {
		return err
	}
	if err := validateSecret("ENCRYPTION_KEY", c.EncryptionKey); err != nil {
		return err
	}

	if c.SendGridAPIKey == "" {
		log.Warn().Msg("SENDGRID_API_KEY is empty in production: outbound email is disabled")
	}
	if c.RedisURL == "" {
		log.Warn().Msg("REDIS_URL is empty in production: rate limits and live events are per-instance only")
	} else if strings.HasPrefix(c.RedisURL, "redis://") {
		log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
	}
	if strings.HasPrefix(c.FrontendURL, "http://") {
		log.Warn().Msg("FRONTEND_URL is not https in production")
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
