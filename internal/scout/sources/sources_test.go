package sources

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestClipTruncatesOnRuneBoundary(t *testing.T) {
	assert.Equal(t, "short", clip("short", maxBodyLen))

	// two-byte runes: a limit falling mid-rune must back off, not slice through
	body := strings.Repeat("ü", maxBodyLen)
	got := clip(body, maxBodyLen-1)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), maxBodyLen-1)

	four := strings.Repeat("𝕏", 8)
	for limit := 1; limit <= len(four); limit++ {
		assert.True(t, utf8.ValidString(clip(four, limit)), "limit %d", limit)
	}
}
