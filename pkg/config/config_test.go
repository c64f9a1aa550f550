package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("APP_ENV", "staging")

	cfg, err := Load()
	req.NoError(err)
	req.Equal("openrouter", cfg.TranslationEngine)
	req.Equal(time.Hour, cfg.CacheTTL)
	req.Equal(1000, cfg.CacheMaxItems)
	req.Equal(100, cfg.HistoryLimit)
	req.Equal("sqlite", cfg.DBDriver)
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	t.Setenv("APP_ENV", "qa")

	_, err := Load()
	require.Error(t, err)
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	req := require.New(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := Load()
	req.ErrorContains(err, "JWT_SECRET_KEY")

	t.Setenv("JWT_SECRET_KEY", "s3cret")
	cfg, err := Load()
	req.NoError(err)
	req.True(cfg.IsProduction())
}

func TestOverrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("TRANSLATION_CACHE_TTL", "90s")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(90*time.Second, cfg.CacheTTL)
	req.Equal("mysql", cfg.DBDriver)
	req.Equal([]string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}
