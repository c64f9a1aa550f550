package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime tunable of the relay server.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"staging"`
	Port   string `envconfig:"PORT" default:"5000"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"talklink.db"`

	JWTSecret string `envconfig:"JWT_SECRET_KEY"`

	TranslationEngine string        `envconfig:"TRANSLATION_ENGINE" default:"openrouter"`
	OpenRouterAPIKey  string        `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string        `envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string        `envconfig:"OPENROUTER_MODEL" default:"openai/gpt-4o-mini"`
	GeminiAPIKey      string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel       string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	OracleTimeout     time.Duration `envconfig:"ORACLE_TIMEOUT" default:"30s"`

	BreakerMaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`

	CacheTTL      time.Duration `envconfig:"TRANSLATION_CACHE_TTL" default:"1h"`
	CacheMaxItems int           `envconfig:"TRANSLATION_CACHE_MAX_ITEMS" default:"1000"`

	HistoryLimit    int `envconfig:"HISTORY_LIMIT" default:"100"`
	BridgeQueueSize int `envconfig:"BRIDGE_QUEUE_SIZE" default:"64"`

	RateLimitWindowSeconds int `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"10"`
	RateLimitCapacity      int `envconfig:"RATE_LIMIT_CAPACITY" default:"20"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// loadDotEnv only loads .env outside production; a missing file is fine.
func loadDotEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	_ = godotenv.Load()
}

// Load reads the configuration from the environment (and .env outside production).
func Load() (*Config, error) {
	loadDotEnv()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges and production requirements.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"development", "staging", "production"}, c.AppEnv) {
		return fmt.Errorf("APP_ENV must be 'development', 'staging' or 'production', got %q", c.AppEnv)
	}
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	if c.DBDriver != "sqlite" && c.DBDriver != "mysql" {
		return fmt.Errorf("DB_DRIVER must be 'sqlite' or 'mysql', got %q", c.DBDriver)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY must be set in production")
	}
	if c.CacheMaxItems <= 0 {
		return fmt.Errorf("TRANSLATION_CACHE_MAX_ITEMS must be positive")
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
	if c.BridgeQueueSize <= 0 {
		c.BridgeQueueSize = 64
	}
	return nil
}

// NewLogger builds the process logger: JSON in production, text elsewhere.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if c.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// LogSummary writes the non-secret settings, the way operators expect at boot.
func (c *Config) LogSummary(logger *logrus.Logger) {
	logger.WithFields(logrus.Fields{
		"app_env":            c.AppEnv,
		"port":               c.Port,
		"db_driver":          c.DBDriver,
		"engine":             c.TranslationEngine,
		"openrouter_key_set": c.OpenRouterAPIKey != "",
		"gemini_key_set":     c.GeminiAPIKey != "",
		"cache_ttl":          c.CacheTTL.String(),
		"cache_max":          c.CacheMaxItems,
		"history_limit":      c.HistoryLimit,
	}).Info("[config] loaded")
}
