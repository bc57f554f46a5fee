package views

import (
	"strings"

	"github.com/rivo/uniseg"
)

// wrapText breaks s into lines no wider than width terminal cells, breaking
// at spaces where possible. Existing newlines are kept.
func wrapText(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		out = append(out, wrapParagraph(para, width)...)
	}
	return out
}

func wrapParagraph(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		line  strings.Builder
		used  int
	)
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		used = 0
	}
	for _, w := range words {
		ww := uniseg.StringWidth(w)
		if ww > width {
			if used > 0 {
				flush()
			}
			parts := splitWidth(w, width)
			for i, part := range parts {
				line.WriteString(part)
				used = uniseg.StringWidth(part)
				if i < len(parts)-1 {
					flush()
				}
			}
			continue
		}
		need := ww
		if used > 0 {
			need++
		}
		if used+need > width {
			flush()
			need = ww
		}
		if used > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(w)
		used += need
	}
	if used > 0 {
		flush()
	}
	return lines
}

// splitWidth cuts a single word into chunks of at most width cells along
// grapheme boundaries.
func splitWidth(w string, width int) []string {
	var (
		parts []string
		cur   strings.Builder
		used  int
	)
	g := uniseg.NewGraphemes(w)
	for g.Next() {
		cw := g.Width()
		if used+cw > width && used > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			used = 0
		}
		cur.WriteString(g.Str())
		used += cw
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
