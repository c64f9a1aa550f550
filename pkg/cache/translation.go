package cache

import (
	"strings"
	"time"
)

// Translation is what the relay memoizes for a (text, tone) pair. The detected
// language travels with the text so a cache hit keeps its language tag.
type Translation struct {
	Text             string
	DetectedLanguage string
}

// TranslationCache is the shared (text, tone) -> Translation memo.
type TranslationCache struct {
	c *Cache
}

func NewTranslationCache(maxItems int, ttl time.Duration, opts ...Option) *TranslationCache {
	return &TranslationCache{c: New(maxItems, ttl, opts...)}
}

func translationKey(text, tone string) string {
	return KeyFromStrings(strings.TrimSpace(text), tone)
}

// Get looks up the translation for the trimmed text and tone.
func (t *TranslationCache) Get(text, tone string) (Translation, bool) {
	v, ok := t.c.Get(translationKey(text, tone))
	if !ok {
		return Translation{}, false
	}
	tr, ok := v.(Translation)
	return tr, ok
}

// Put stores a translation; empty translations are not worth keeping.
func (t *TranslationCache) Put(text, tone string, tr Translation) {
	if strings.TrimSpace(tr.Text) == "" {
		return
	}
	t.c.Set(translationKey(text, tone), tr)
}

func (t *TranslationCache) Len() int { return t.c.Len() }

func (t *TranslationCache) StartJanitor(interval time.Duration) { t.c.StartJanitor(interval) }

func (t *TranslationCache) Stop() { t.c.Stop() }
