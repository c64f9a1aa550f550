package translate

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	"talklink/models"
)

// DetectLanguage guesses the ISO 639-1 code of text locally, without the
// oracle. It returns models.LanguageUnknown when text is blank or the
// detector has no confident answer.
func DetectLanguage(text string) (string, float64) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.LanguageUnknown, 0
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" || info.Confidence == 0 {
		return models.LanguageUnknown, info.Confidence
	}
	return code, info.Confidence
}
