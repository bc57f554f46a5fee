package keys

import (
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
)

// Action is one key binding. Key is tcell.KeyRune for printable keys, in
// which case Rune selects the character. When, if set, must report true for
// the binding to fire.
type Action struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func()
	Visible     bool
	When        func() bool
}

// Matches reports whether ev is this action's key.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

func (a *Action) enabled() bool {
	return a.When == nil || a.When()
}

func (a *Action) label() string {
	if a.Key == tcell.KeyRune {
		return string(a.Rune)
	}
	return tcell.KeyNames[a.Key]
}

type binding struct {
	name   string
	action *Action
}

// Registry holds the global bindings and those of each page. Page bindings
// win over global ones; within a scope the first registered binding wins.
type Registry struct {
	global []binding
	views  map[string][]binding
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string][]binding)}
}

// AddGlobal registers or replaces a binding active on every page.
func (r *Registry) AddGlobal(name string, action *Action) {
	r.global = upsert(r.global, name, action)
}

// AddView registers or replaces a binding active on one page.
func (r *Registry) AddView(view, name string, action *Action) {
	r.views[view] = upsert(r.views[view], name, action)
}

func upsert(list []binding, name string, action *Action) []binding {
	if i := slices.IndexFunc(list, func(b binding) bool { return b.name == name }); i >= 0 {
		list[i].action = action
		return list
	}
	return append(list, binding{name: name, action: action})
}

// Hints returns the visible descriptions for view: page bindings in
// registration order, then global ones.
func (r *Registry) Hints(view string) []string {
	var hints []string
	for _, b := range slices.Concat(r.views[view], r.global) {
		if b.action.Visible {
			hints = append(hints, b.action.Description)
		}
	}
	return hints
}

// HandleEvent runs the first enabled binding of view, then of the global
// scope, that matches ev. It reports whether one ran.
func (r *Registry) HandleEvent(view string, ev *tcell.EventKey) bool {
	for _, b := range slices.Concat(r.views[view], r.global) {
		if b.action.Matches(ev) && b.action.enabled() {
			b.action.Handler()
			return true
		}
	}
	return false
}

// Conflicts lists keys bound more than once within view's own scope or
// within the global scope. Page keys shadowing global ones are intended and
// not reported.
func (r *Registry) Conflicts(view string) []string {
	var out []string
	for _, scope := range [][]binding{r.views[view], r.global} {
		seen := make(map[string]string)
		for _, b := range scope {
			key := b.action.label()
			if prev, ok := seen[key]; ok {
				out = append(out, fmt.Sprintf("%s: %s and %s", key, prev, b.name))
				continue
			}
			seen[key] = b.name
		}
	}
	return out
}
