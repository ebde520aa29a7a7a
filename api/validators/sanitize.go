package validators

import (
	"strings"
	"unicode"
)

// MaxNoteLength bounds free-text reviewer and seller notes.
const MaxNoteLength = 4000

// SanitizeNote trims surrounding space and drops control characters other
// than newlines and tabs, then cuts the result to MaxNoteLength runes.
func SanitizeNote(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
	if runes := []rune(cleaned); len(runes) > MaxNoteLength {
		cleaned = string(runes[:MaxNoteLength])
	}
	return cleaned
}
