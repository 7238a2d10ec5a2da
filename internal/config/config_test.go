package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3001}
		assert.Equal(t, ":3001", cfg.Addr())
	})

	t.Run("IsProduction matches APP_ENV case-insensitively", func(t *testing.T) {
		assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
		assert.True(t, (&Config{AppEnv: "Production"}).IsProduction())
		assert.False(t, (&Config{AppEnv: "development"}).IsProduction())
		assert.False(t, (&Config{}).IsProduction())
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads config with defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/tokenmeter")
		for _, key := range []string{"PORT", "APP_ENV", "REDIS_URL", "JWT_SECRET", "ENCRYPTION_KEY", "FROM_EMAIL", "FRONTEND_URL", "LOG_LEVEL"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3001, cfg.Port)
		assert.Equal(t, "development", cfg.AppEnv)
		assert.Equal(t, "postgres://localhost/tokenmeter", cfg.DatabaseURL)
		assert.True(t, cfg.DatabaseAutoMigrate)
		assert.Empty(t, cfg.RedisURL)
		assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
		assert.Equal(t, DevEncryptionKey, cfg.EncryptionKey)
		assert.Equal(t, "noreply@aimonitor.com", cfg.FromEmail)
		assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://db/tm")
		t.Setenv("PORT", "8443")
		t.Setenv("APP_ENV", "production")
		t.Setenv("REDIS_URL", "rediss://cache:6380")
		t.Setenv("DATABASE_AUTO_MIGRATE", "false")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8443, cfg.Port)
		assert.True(t, cfg.IsProduction())
		assert.Equal(t, "rediss://cache:6380", cfg.RedisURL)
		assert.False(t, cfg.DatabaseAutoMigrate)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		os.Unsetenv("DATABASE_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	strong := strings.Repeat("s", 40)

	t.Run("development accepts default secrets", func(t *testing.T) {
		cfg := &Config{JWTSecret: DevJWTSecret, EncryptionKey: DevEncryptionKey, FrontendURL: "http://localhost:5173"}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("production rejects default jwt secret", func(t *testing.T) {
		cfg := &Config{JWTSecret: DevJWTSecret, EncryptionKey: strong}
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("production rejects default encryption key", func(t *testing.T) {
		cfg := &Config{JWTSecret: strong, EncryptionKey: DevEncryptionKey}
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ENCRYPTION_KEY")
	})

	t.Run("production rejects short secrets", func(t *testing.T) {
		cfg := &Config{JWTSecret: "short", EncryptionKey: strong}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("production accepts strong secrets", func(t *testing.T) {
		cfg := &Config{JWTSecret: strong, EncryptionKey: strong + "x", FrontendURL: "https://app.tokenmeter.io"}
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("rejects relative frontend url", func(t *testing.T) {
		cfg := &Config{FrontendURL: "app.tokenmeter.io"}
		assert.Error(t, cfg.Validate(false))
	})
}
