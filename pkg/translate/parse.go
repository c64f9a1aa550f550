package translate

import (
	"encoding/json"
	"strings"

	"talklink/models"
)

type completion struct {
	Translation      *string     `json:"translation"`
	DetectedLanguage string      `json:"detected_language"`
	Assistant        *SearchHint `json:"assistant"`
}

// ParseCompletion turns the oracle's completion text into a Result.
//
// The expected shape is the JSON object requested by SystemPrompt, optionally
// wrapped in a markdown code fence. Anything else is kept as a best-effort
// translation: the whole raw text, language unknown, no hint.
func ParseCompletion(raw string) Result {
	raw = strings.TrimSpace(raw)
	if c, ok := parseStructured(raw); ok {
		lang := strings.ToLower(strings.TrimSpace(c.DetectedLanguage))
		if lang == "" {
			lang = models.LanguageUnknown
		}
		res := Result{Text: strings.TrimSpace(*c.Translation), DetectedLanguage: lang}
		if c.Assistant != nil && c.Assistant.ShouldSearch {
			res.Hint = c.Assistant
		}
		return res
	}
	return Result{Text: raw, DetectedLanguage: models.LanguageUnknown}
}

func parseStructured(raw string) (completion, bool) {
	body := StripCodeFence(raw)
	if !strings.HasPrefix(body, "{") {
		return completion{}, false
	}
	var c completion
	if err := json.Unmarshal([]byte(body), &c); err != nil {
		return completion{}, false
	}
	if c.Translation == nil || strings.TrimSpace(*c.Translation) == "" {
		return completion{}, false
	}
	return c, true
}

// StripCodeFence unwraps text from a markdown code fence, if it has one.
func StripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drops the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
