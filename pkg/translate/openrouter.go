package translate

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultOpenRouterModel   = "openai/gpt-4o-mini"
)

// OpenRouterClient talks to any OpenAI-compatible chat completion endpoint,
// OpenRouter by default.
type OpenRouterClient struct {
	apiKey string
	model  string
	client *openai.Client
	logger *logrus.Logger
}

// NewOpenRouterClient creates a client. An empty apiKey is allowed; every
// call then fails with ErrUnavailable.
func NewOpenRouterClient(apiKey, baseURL, model string, logger *logrus.Logger) *OpenRouterClient {
	if baseURL == "" {
		baseURL = DefaultOpenRouterBaseURL
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenRouterClient{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}
}

func (c *OpenRouterClient) Translate(ctx context.Context, text string, tone Tone) (Result, error) {
	out, err := c.Complete(ctx, Prompt{
		System:      SystemPrompt(tone),
		User:        text,
		Temperature: 0.3,
		MaxTokens:   1500,
	})
	if err != nil {
		return Result{}, err
	}
	return ParseCompletion(out), nil
}

// Complete sends one chat completion and returns the first choice's text.
func (c *OpenRouterClient) Complete(ctx context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", Unavailable("OPENROUTER_API_KEY is not set", ErrNoCredential)
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithField("model", c.model).Warn("[openrouter] completion failed")
		return "", Unavailable("oracle request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", Unavailable("oracle returned no choices", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", Unavailable("oracle returned empty content", nil)
	}
	return content, nil
}
