package picker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// escapeRE matches CSI, OSC and two-byte ESC sequences.
var escapeRE = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[A-Za-z]|\].*?(?:\x1b\\|\x07)|[()#][A-Za-z0-9])`)

// Sanitize makes a stored label safe to print on one terminal row: escape
// sequences are dropped, invalid UTF-8 becomes U+FFFD and remaining control
// characters become spaces.
func Sanitize(s string) string {
	s = escapeRE.ReplaceAllString(s, "")
	s = strings.ToValidUTF8(s, "�")
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

// MiddleTruncate shortens s to maxWidth display columns by replacing its
// middle with an ellipsis. Below three columns it truncates from the right.
func MiddleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}

	room := maxWidth - 1
	head := runewidth.Truncate(s, (room+1)/2, "")
	return head + "…" + suffix(s, room/2)
}

// suffix returns the longest tail of s no wider than width.
func suffix(s string, width int) string {
	runes := []rune(s)
	start := len(runes)
	for w := 0; start > 0; start-- {
		rw := runewidth.RuneWidth(runes[start-1])
		if w+rw > width {
			break
		}
		w += rw
	}
	return string(runes[start:])
}
