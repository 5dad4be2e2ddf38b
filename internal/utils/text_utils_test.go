package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 0))
	assert.Equal(t, "", TruncateRunes("", 3))
}

func TestValidUTF8(t *testing.T) {
	assert.Equal(t, "ab", ValidUTF8("a\xffb"))
	assert.Equal(t, "déjà", ValidUTF8("déjà"))
}

func TestTextProcessorTruncatesOnRuneBoundary(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	out := tp.ProcessText(strings.Repeat("é", 10), 5)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasPrefix(out, "éé"))
	assert.Contains(t, out, "tronqué")

	assert.Equal(t, "court", tp.ProcessText("court", 100))
}
