package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSplitByBytesKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("پرامپت ", 50)

	parts := SplitByBytes(text, 100)
	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 100)
		assert.True(t, utf8.ValidString(p))
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitByBytesShortText(t *testing.T) {
	assert.Equal(t, []string{"hi"}, SplitByBytes("hi", 4096))
	assert.Equal(t, []string{""}, SplitByBytes("", 10))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", TruncateByBytes("abc", 10))

	got := TruncateByBytes("کپی شد!", 5)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 5)
	assert.Equal(t, "کپ", got)
}
