package translate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCompletion(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantText string
		wantLang string
		wantHint bool
	}{
		{
			name:     "plain json",
			raw:      `{"translation":"This price is too high.","detected_language":"ko","assistant":{"should_search":false}}`,
			wantText: "This price is too high.",
			wantLang: "ko",
		},
		{
			name:     "fenced json with hint",
			raw:      "```json\n{\"translation\":\"견적서를 보내주세요\",\"detected_language\":\"EN\",\"assistant\":{\"should_search\":true,\"reason\":\"pricing\",\"suggested_query\":\"steel price\"}}\n```",
			wantText: "견적서를 보내주세요",
			wantLang: "en",
			wantHint: true,
		},
		{
			name:     "missing language",
			raw:      `{"translation":"hello"}`,
			wantText: "hello",
			wantLang: "unknown",
		},
		{
			name:     "free text",
			raw:      "  Sure! Here is the translation: hello  ",
			wantText: "Sure! Here is the translation: hello",
			wantLang: "unknown",
		},
		{
			name:     "json without translation",
			raw:      `{"detected_language":"ko"}`,
			wantText: `{"detected_language":"ko"}`,
			wantLang: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCompletion(tt.raw)
			require.Equal(t, tt.wantText, got.Text)
			require.Equal(t, tt.wantLang, got.DetectedLanguage)
			if tt.wantHint {
				require.NotNil(t, got.Hint)
				require.Equal(t, "steel price", got.Hint.SuggestedQuery)
			} else {
				require.Nil(t, got.Hint)
			}
		})
	}
}

func TestParseTone(t *testing.T) {
	tone, err := ParseTone("")
	require.NoError(t, err)
	require.Equal(t, ToneProfessional, tone)

	tone, err = ParseTone(" Negotiation ")
	require.NoError(t, err)
	require.Equal(t, ToneNegotiation, tone)

	_, err = ParseTone("sarcastic")
	require.Error(t, err)
	require.Len(t, Tones(), 5)
}

func TestSystemPromptMentionsTone(t *testing.T) {
	for _, tone := range Tones() {
		require.Contains(t, SystemPrompt(tone), "detected_language")
	}
}

func TestDetectLanguage(t *testing.T) {
	lang, _ := DetectLanguage("   ")
	require.Equal(t, "unknown", lang)

	lang, conf := DetectLanguage("이 가격은 너무 비쌉니다. 조금 할인해 주실 수 있나요?")
	require.Equal(t, "ko", lang)
	require.Greater(t, conf, 0.0)
}
