package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks every way a translation can fail: missing credential,
// unreachable oracle, bad status, unreadable envelope or an open breaker.
// Callers degrade to an untranslated relay when errors.Is(err, ErrUnavailable).
var ErrUnavailable = errors.New("translation unavailable")

// ErrNoCredential is the cause attached when an engine has no API key.
var ErrNoCredential = errors.New("no credential configured")

// Unavailable wraps reason (and an optional cause) as an ErrUnavailable.
func Unavailable(reason string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, reason, cause)
}

// Tone steers the register of the translation.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneFriendly     Tone = "friendly"
	ToneNegotiation  Tone = "negotiation"
	ToneUpdate       Tone = "update"
	ToneIssue        Tone = "issue"
)

var tones = []Tone{ToneProfessional, ToneFriendly, ToneNegotiation, ToneUpdate, ToneIssue}

// Tones lists the accepted tones.
func Tones() []Tone { return append([]Tone(nil), tones...) }

// ParseTone maps user input onto the tone set; blank means professional.
func ParseTone(s string) (Tone, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ToneProfessional, nil
	}
	for _, t := range tones {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

// SearchHint is the oracle's opinion on whether a lookup would help the host.
type SearchHint struct {
	ShouldSearch   bool   `json:"should_search"`
	Reason         string `json:"reason"`
	SuggestedQuery string `json:"suggested_query"`
}

// Result is a successful translation.
type Result struct {
	Text             string
	DetectedLanguage string
	Hint             *SearchHint
}

// Translator is the oracle boundary. Text is non-empty and trimmed.
type Translator interface {
	Translate(ctx context.Context, text string, tone Tone) (Result, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text string, tone Tone) (Result, error)

func (f TranslatorFunc) Translate(ctx context.Context, text string, tone Tone) (Result, error) {
	return f(ctx, text, tone)
}
