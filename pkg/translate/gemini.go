package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-2.0-flash"
)

// GeminiClient calls the Gemini generateContent REST endpoint. The configured
// model is tried first, then DefaultGeminiModel.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
	logger     *logrus.Logger
}

func NewGeminiClient(apiKey, model string, logger *logrus.Logger) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultGeminiBaseURL,
		httpClient: http.DefaultClient,
		retryDelay: 2 * time.Second,
		logger:     logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction geminiContent   `json:"systemInstruction"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  map[string]any  `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

var errEmptyCandidate = errors.New("no text in candidates")

func (c *GeminiClient) Translate(ctx context.Context, text string, tone Tone) (Result, error) {
	out, err := c.Complete(ctx, Prompt{
		System:      SystemPrompt(tone),
		User:        text,
		Temperature: 0.3,
		MaxTokens:   1500,
		JSON:        true,
	})
	if err != nil {
		return Result{}, err
	}
	return ParseCompletion(out), nil
}

// Complete tries the configured model, then the default one, retrying each
// once when the API reports overload or quota exhaustion.
func (c *GeminiClient) Complete(ctx context.Context, p Prompt) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", Unavailable("GEMINI_API_KEY is not set", ErrNoCredential)
	}

	genCfg := map[string]any{
		"temperature":     p.Temperature,
		"maxOutputTokens": p.MaxTokens,
	}
	if p.JSON {
		genCfg["responseMimeType"] = "application/json"
	}
	body, err := json.Marshal(geminiRequest{
		SystemInstruction: geminiContent{Parts: []geminiPart{{Text: p.System}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.User}}}},
		GenerationConfig:  genCfg,
	})
	if err != nil {
		return "", Unavailable("encode request", err)
	}

	models := []string{c.model}
	if c.model != DefaultGeminiModel {
		models = append(models, DefaultGeminiModel)
	}

	var failures []string
	for _, m := range models {
		out, err := c.generate(ctx, m, body)
		if err != nil && isRetriable(err) {
			sleepWithContext(ctx, c.retryDelay)
			out, err = c.generate(ctx, m, body)
		}
		if err == nil {
			return strings.TrimSpace(out), nil
		}
		c.logger.WithError(err).WithField("model", m).Warn("[gemini] model failed")
		failures = append(failures, fmt.Sprintf("%s -> %v", m, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", Unavailable("all gemini models failed: "+strings.Join(failures, "; "), nil)
}

func (c *GeminiClient) generate(ctx context.Context, model string, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read error: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("decode envelope: %w", err)
	}
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			if strings.TrimSpace(p.Text) != "" {
				return p.Text, nil
			}
		}
	}
	return "", errEmptyCandidate
}

func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	e := strings.ToLower(err.Error())
	if strings.Contains(e, "status 503") || strings.Contains(e, "unavailable") {
		return true
	}
	if strings.Contains(e, "status 429") || strings.Contains(e, "resource_exhausted") || strings.Contains(e, "quota") {
		return true
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
