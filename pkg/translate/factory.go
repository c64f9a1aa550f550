package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EngineType names a translation backend.
type EngineType string

const (
	// EngineOpenRouter uses an OpenAI-compatible chat completion API.
	EngineOpenRouter EngineType = "openrouter"
	// EngineGemini uses the Gemini generateContent REST API.
	EngineGemini EngineType = "gemini"
)

// Config holds configuration for creating a Translator instance.
type Config struct {
	Engine EngineType

	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string

	GeminiAPIKey string
	GeminiModel  string

	// Timeout bounds a single oracle call. Zero disables it.
	Timeout time.Duration
	Breaker BreakerSettings

	// Logger is the logger instance to use. If nil, a default logger is created.
	Logger *logrus.Logger
}

// NewTranslator builds the configured engine wrapped with a timeout, a
// circuit breaker and request metrics. The result also runs free-form
// completions through the same breaker.
func NewTranslator(cfg Config) (Oracle, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	cfg.Logger.WithFields(logrus.Fields{
		"engine":  cfg.Engine,
		"timeout": cfg.Timeout.String(),
	}).Info("Creating translator instance")

	var engine Oracle
	switch cfg.Engine {
	case EngineOpenRouter:
		engine = NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel, cfg.Logger)
	case EngineGemini:
		engine = NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Logger)
	default:
		cfg.Logger.WithField("engine", cfg.Engine).Error("Unknown translation engine")
		return nil, fmt.Errorf("unknown translation engine: %s", cfg.Engine)
	}
	return newGuarded(string(cfg.Engine), engine, cfg.Timeout, cfg.Breaker, cfg.Logger), nil
}

// ParseEngineType parses a string into an EngineType.
func ParseEngineType(s string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openrouter", "openai":
		return EngineOpenRouter, nil
	case "gemini":
		return EngineGemini, nil
	default:
		return "", fmt.Errorf("unknown engine type: %s (supported: openrouter, gemini)", s)
	}
}
