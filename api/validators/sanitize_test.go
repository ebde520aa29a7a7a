package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeNote(t *testing.T) {
	assert.Equal(t, "blurry photos\nretake", SanitizeNote("  blurry\x00 photos\nretake\x1b  "))
	assert.Equal(t, "", SanitizeNote(" \t\n "))

	long := strings.Repeat("é", MaxNoteLength+10)
	assert.Len(t, []rune(SanitizeNote(long)), MaxNoteLength)
}
