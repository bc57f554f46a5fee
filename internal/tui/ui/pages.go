package ui

import (
	"slices"

	"github.com/rivo/tview"
)

// Pages is a stack of named pages over tview.Pages. Only the top page is
// visible; onChange receives a copy of the stack after every change.
type Pages struct {
	*tview.Pages
	stack    []string
	onChange func(stack []string)
}

// NewPages creates an empty page stack.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
	}
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the current page.
func (p *Pages) Push(name string) {
	p.stack = append(p.stack, name)
	p.show()
}

// Pop removes the top page and returns its name, or "" when empty.
func (p *Pages) Pop() string {
	if len(p.stack) == 0 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.show()
	return top
}

// PopTo pops pages until name is on top. It reports false and leaves the
// stack alone when name is not on it.
func (p *Pages) PopTo(name string) bool {
	i := slices.Index(p.stack, name)
	if i < 0 {
		return false
	}
	if i == len(p.stack)-1 {
		return true
	}
	p.stack = p.stack[:i+1]
	p.show()
	return true
}

// Reset replaces the whole stack with name.
func (p *Pages) Reset(name string) {
	p.stack = []string{name}
	p.show()
}

// Current returns the name of the top page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Contains reports whether name is anywhere on the stack.
func (p *Pages) Contains(name string) bool {
	return slices.Contains(p.stack, name)
}

// Stack returns a copy of the current page stack.
func (p *Pages) Stack() []string {
	return slices.Clone(p.stack)
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// show makes the top of the stack the only visible page.
func (p *Pages) show() {
	top := p.Current()
	for _, name := range p.GetPageNames(false) {
		if name != top {
			p.HidePage(name)
		}
	}
	if top != "" {
		p.ShowPage(top)
		p.SendToFront(top)
	}
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
