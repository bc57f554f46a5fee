package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const maxCrumb = 24

// Crumbs shows the page stack as a trail. A page may carry a label, such
// as the open conversation's name, shown in place of the page name.
type Crumbs struct {
	*tview.TextView
	theme  *Theme
	labels map[string]string
	stack  []string
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
		labels:   make(map[string]string),
	}
}

// SetLabel names page in the trail; an empty label restores the page name.
func (c *Crumbs) SetLabel(page, label string) {
	if c.labels[page] == label {
		return
	}
	if label == "" {
		delete(c.labels, page)
	} else {
		c.labels[page] = label
	}
	c.Update(c.stack)
}

// Update renders the trail for stack.
func (c *Crumbs) Update(stack []string) {
	c.stack = stack
	c.Clear()
	_, _ = fmt.Fprint(c, c.trail())
}

func (c *Crumbs) trail() string {
	parts := make([]string, 0, len(c.stack))
	for i, page := range c.stack {
		fg, bg, attr := c.theme.CrumbInactiveFg, c.theme.CrumbInactiveBg, ""
		if i == len(c.stack)-1 {
			fg, bg, attr = c.theme.CrumbActiveFg, c.theme.CrumbActiveBg, "b"
		}
		parts = append(parts, fmt.Sprintf("[%s:%s:%s] %s [-:-:-]",
			ColorName(fg), ColorName(bg), attr, tview.Escape(c.label(page))))
	}
	return strings.Join(parts, " ")
}

func (c *Crumbs) label(page string) string {
	label, ok := c.labels[page]
	if !ok {
		return page
	}
	if r := []rune(label); len(r) > maxCrumb {
		return string(r[:maxCrumb-1]) + "…"
	}
	return label
}

// ColorName returns a tview-compatible color name string.
func ColorName(c tcell.Color) string {
	if c == tcell.ColorDefault {
		return "-"
	}
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
