// Package strings provides small text helpers shared by shepherd's
// command output code.
package strings

import (
	"strings"
)

// DefaultDetailMaxLen is the default maximum length for detail cells in
// formatted output. Shared so every table truncates the same way.
const DefaultDetailMaxLen = 60

// minTruncateLen is the smallest maxLen Truncate accepts. Anything
// shorter would not leave room for content plus "...".
const minTruncateLen = 4

// Truncate collapses s onto a single line and caps it at maxLen
// characters, appending "..." when content was cut off. Newlines and
// runs of whitespace become single spaces.
//
// The function operates on runes rather than bytes so multi-byte
// characters are never split.
func Truncate(s string, maxLen int) string {
	if maxLen < minTruncateLen {
		maxLen = minTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
