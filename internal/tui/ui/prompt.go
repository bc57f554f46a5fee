package ui

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// PromptMode indicates the type of prompt (command or filter).
type PromptMode int

const (
	PromptCommand PromptMode = iota
	PromptFilter
)

const maxHistory = 50

// Prompt is the ":" command and "/" filter bar. Commands keep a history
// recalled with Up and Down, and complete from a fixed word list.
type Prompt struct {
	*tview.InputField
	theme    *Theme
	mode     PromptMode
	words    []string
	history  []string
	cursor   int
	onSubmit func(mode PromptMode, text string)
	onCancel func()
}

// NewPrompt creates a new prompt input bar.
func NewPrompt(theme *Theme) *Prompt {
	input := tview.NewInputField()
	input.SetBorder(true)
	input.SetBorderColor(theme.PromptBorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	p := &Prompt{InputField: input, theme: theme}
	input.SetDoneFunc(p.done)
	input.SetInputCapture(p.capture)
	input.SetAutocompleteFunc(p.complete)
	return p
}

// SetOnSubmit sets the callback run on Enter. A filter may be submitted
// empty, which clears it; an empty command is ignored.
func (p *Prompt) SetOnSubmit(fn func(mode PromptMode, text string)) {
	p.onSubmit = fn
}

// SetOnCancel sets the callback when the prompt is cancelled.
func (p *Prompt) SetOnCancel(fn func()) {
	p.onCancel = fn
}

// SetCompletions sets the command words offered while typing a command.
func (p *Prompt) SetCompletions(words []string) {
	p.words = words
}

// Activate shows the prompt in the given mode with an empty field.
func (p *Prompt) Activate(mode PromptMode) {
	p.mode = mode
	p.cursor = len(p.history)
	p.SetText("")
	switch mode {
	case PromptCommand:
		p.SetLabel(":")
		p.SetTitle(" Command ")
		p.SetPlaceholder("new, open <name>, logout, help, quit")
	case PromptFilter:
		p.SetLabel("/")
		p.SetTitle(" Filter ")
		p.SetPlaceholder("name or title")
	}
}

// Mode returns the current prompt mode.
func (p *Prompt) Mode() PromptMode {
	return p.mode
}

// History returns the submitted commands, oldest first.
func (p *Prompt) History() []string {
	return append([]string(nil), p.history...)
}

func (p *Prompt) done(key tcell.Key) {
	switch key {
	case tcell.KeyEnter:
		text := strings.TrimSpace(p.GetText())
		if p.mode == PromptCommand {
			if text == "" {
				return
			}
			p.remember(text)
		}
		p.SetText("")
		if p.onSubmit != nil {
			p.onSubmit(p.mode, text)
		}
	case tcell.KeyEscape:
		p.SetText("")
		if p.onCancel != nil {
			p.onCancel()
		}
	}
}

func (p *Prompt) remember(text string) {
	if n := len(p.history); n > 0 && p.history[n-1] == text {
		return
	}
	p.history = append(p.history, text)
	if len(p.history) > maxHistory {
		p.history = p.history[len(p.history)-maxHistory:]
	}
}

// capture walks the history in command mode.
func (p *Prompt) capture(ev *tcell.EventKey) *tcell.EventKey {
	if p.mode != PromptCommand || len(p.history) == 0 {
		return ev
	}
	switch ev.Key() {
	case tcell.KeyUp:
		if p.cursor > 0 {
			p.cursor--
		}
		p.SetText(p.history[p.cursor])
		return nil
	case tcell.KeyDown:
		if p.cursor < len(p.history)-1 {
			p.cursor++
			p.SetText(p.history[p.cursor])
		} else {
			p.cursor = len(p.history)
			p.SetText("")
		}
		return nil
	}
	return ev
}

func (p *Prompt) complete(text string) []string {
	if p.mode != PromptCommand || text == "" || strings.Contains(text, " ") {
		return nil
	}
	var out []string
	for _, w := range p.words {
		if strings.HasPrefix(w, strings.ToLower(text)) && w != text {
			out = append(out, w)
		}
	}
	return out
}
