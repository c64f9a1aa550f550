package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTranslationCacheTrimsTextAndKeepsLanguage(t *testing.T) {
	req := require.New(t)
	tc := NewTranslationCache(10, time.Hour)

	tc.Put("  안녕하세요  ", "professional", Translation{Text: "Hello", DetectedLanguage: "ko"})

	got, ok := tc.Get("안녕하세요", "professional")
	req.True(ok)
	req.Equal(Translation{Text: "Hello", DetectedLanguage: "ko"}, got)

	_, ok = tc.Get("안녕하세요", "friendly")
	req.False(ok, "tone is part of the key")
}

func TestTranslationCacheSkipsEmptyText(t *testing.T) {
	tc := NewTranslationCache(10, time.Hour)
	tc.Put("hi", "professional", Translation{Text: "  "})
	require.Equal(t, 0, tc.Len())
}

func TestTranslationCacheFIFOEviction(t *testing.T) {
	req := require.New(t)
	const n = 5
	tc := NewTranslationCache(n, time.Hour)

	for i := 0; i <= n; i++ {
		tc.Put(fmt.Sprintf("text-%d", i), "professional", Translation{Text: fmt.Sprintf("t-%d", i)})
	}

	_, ok := tc.Get("text-0", "professional")
	req.False(ok, "first inserted entry must be evicted")
	for i := 1; i <= n; i++ {
		_, ok := tc.Get(fmt.Sprintf("text-%d", i), "professional")
		req.True(ok)
	}
}
