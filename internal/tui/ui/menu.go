package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
	"github.com/rivo/uniseg"
)

// menuRows is how many hints fit in the header before starting a new column.
const menuRows = 6

// Menu shows the current page's key hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints top to bottom, then left to right.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	_, _ = fmt.Fprint(m, m.layout(hints))
}

func (m *Menu) layout(hints []MenuHint) string {
	if len(hints) == 0 {
		return ""
	}
	cols := (len(hints) + menuRows - 1) / menuRows
	widths := make([]int, cols)
	for i, h := range hints {
		widths[i/menuRows] = max(widths[i/menuRows], hintWidth(h))
	}

	rows := min(len(hints), menuRows)
	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := c*menuRows + r
			if i >= len(hints) {
				break
			}
			h := hints[i]
			color := m.theme.MenuKeyColor
			if h.Numeric {
				color = m.theme.NumericKeyColor
			}
			fmt.Fprintf(&b, "[%s::b]<%s>[-:-:-] %s", ColorName(color), tview.Escape(h.Key), tview.Escape(h.Description))
			if c < cols-1 && i+menuRows < len(hints) {
				b.WriteString(strings.Repeat(" ", widths[c]-hintWidth(h)+3))
			}
		}
		if r < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func hintWidth(h MenuHint) int {
	return uniseg.StringWidth("<"+h.Key+"> ") + uniseg.StringWidth(h.Description)
}
