package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/tui/ui"
	"github.com/rivo/tview"
)

const composerTitle = " Compose (i to focus) "

// Composer is the single-line draft input under the thread. Drafts are
// capped at chatapi.MaxContentLength bytes; the title counts down once the
// draft is within a fifth of the cap.
type Composer struct {
	*tview.InputField
	theme    *ui.Theme
	onSend   func(text string)
	onCancel func()
}

// NewComposer creates a new message composer.
func NewComposer(theme *ui.Theme) *Composer {
	input := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0).
		SetPlaceholder("Type a message, Enter to send, Esc to leave")
	input.SetBorder(true)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetPlaceholderTextColor(theme.PendingColor)
	input.SetLabelColor(theme.MenuKeyColor)
	input.SetTitle(composerTitle)
	input.SetTitleColor(theme.TitleColor)

	c := &Composer{InputField: input, theme: theme}
	input.SetAcceptanceFunc(func(text string, _ rune) bool {
		return len(text) <= chatapi.MaxContentLength
	})
	input.SetChangedFunc(c.updateTitle)
	input.SetDoneFunc(c.done)
	return c
}

func (c *Composer) done(key tcell.Key) {
	switch key {
	case tcell.KeyEnter:
		text := c.GetText()
		if strings.TrimSpace(text) == "" || c.onSend == nil {
			return
		}
		c.SetText("")
		c.onSend(text)
	case tcell.KeyEscape:
		if c.onCancel != nil {
			c.onCancel()
		}
	}
}

func (c *Composer) updateTitle(text string) {
	left := chatapi.MaxContentLength - len(text)
	if left > chatapi.MaxContentLength/5 {
		c.SetTitle(composerTitle)
		c.SetTitleColor(c.theme.TitleColor)
		return
	}
	c.SetTitle(fmt.Sprintf(" Compose (%d left) ", left))
	c.SetTitleColor(c.theme.FlashWarnColor)
}

// SetOnSend sets the callback for a non-blank draft submitted with Enter.
func (c *Composer) SetOnSend(fn func(text string)) {
	c.onSend = fn
}

// SetOnCancel sets the callback when the composer is left with Esc.
func (c *Composer) SetOnCancel(fn func()) {
	c.onCancel = fn
}

// Restore puts a failed draft back unless the user started a new one.
func (c *Composer) Restore(text string) {
	if c.GetText() == "" {
		c.SetText(text)
	}
}
