package views

import (
	"strings"
	"unicode"
)

// sanitizeForTerminal prepares user-supplied text for tcell. It drops
// emoji modifiers that tcell measures wrongly, bidi controls that could
// reorder what a reader sees, and control characters other than newline;
// tabs become four spaces.
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t':
			b.WriteString("    ")
		case dropRune(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func dropRune(r rune) bool {
	switch {
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	case r == 0x200D: // zero width joiner
		return true
	case r >= 0xFE00 && r <= 0xFE0F, r >= 0xE0100 && r <= 0xE01EF: // variation selectors
		return true
	case r >= 0x202A && r <= 0x202E, r >= 0x2066 && r <= 0x2069: // bidi embedding and isolates
		return true
	default:
		return unicode.IsControl(r)
	}
}
