package keys

import (
	"reflect"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestRegistryHandleEvent(t *testing.T) {
	r := NewRegistry()
	var fired []string
	r.AddGlobal("quit", &Action{Key: tcell.KeyRune, Rune: 'q', Description: "q:quit", Visible: true, Handler: func() { fired = append(fired, "global-q") }})
	r.AddView("Thread", "quit", &Action{Key: tcell.KeyRune, Rune: 'q', Description: "q:back", Handler: func() { fired = append(fired, "thread-q") }})
	r.AddView("Thread", "top", &Action{Key: tcell.KeyHome, Description: "Home:top", Visible: true, Handler: func() { fired = append(fired, "home") }})

	r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	r.HandleEvent("Conversations", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyHome, 0, tcell.ModNone))
	if r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("unbound key reported as handled")
	}

	want := []string{"thread-q", "global-q", "home"}
	if !reflect.DeepEqual(fired, want) {
		t.Errorf("fired = %v, want %v", fired, want)
	}
	if got := r.Hints("Thread"); !reflect.DeepEqual(got, []string{"Home:top", "q:quit"}) {
		t.Errorf("Hints = %v", got)
	}
}

func TestRegistryWhenGuard(t *testing.T) {
	r := NewRegistry()
	enabled := false
	ran := ""
	r.AddView("Thread", "details", &Action{Key: tcell.KeyRune, Rune: 'd', When: func() bool { return enabled }, Handler: func() { ran = "view" }})
	r.AddGlobal("debug", &Action{Key: tcell.KeyRune, Rune: 'd', Handler: func() { ran = "global" }})

	r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone))
	if ran != "global" {
		t.Errorf("disabled view binding should fall through, ran %q", ran)
	}
	enabled = true
	r.HandleEvent("Thread", tcell.NewEventKey(tcell.KeyRune, 'd', tcell.ModNone))
	if ran != "view" {
		t.Errorf("enabled view binding should win, ran %q", ran)
	}
}

func TestRegistryReplaceAndConflicts(t *testing.T) {
	r := NewRegistry()
	count := 0
	r.AddView("Conversations", "reload", &Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() { count += 10 }})
	r.AddView("Conversations", "reload", &Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() { count++ }})
	r.HandleEvent("Conversations", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone))
	if count != 1 {
		t.Errorf("replaced binding not used, count = %d", count)
	}
	if got := r.Conflicts("Conversations"); len(got) != 0 {
		t.Errorf("Conflicts = %v, want none", got)
	}

	r.AddView("Conversations", "refresh", &Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() {}})
	r.AddGlobal("retry", &Action{Key: tcell.KeyRune, Rune: 'r', Handler: func() {}})
	if got := r.Conflicts("Conversations"); !reflect.DeepEqual(got, []string{"r: reload and refresh"}) {
		t.Errorf("Conflicts = %v", got)
	}
}
