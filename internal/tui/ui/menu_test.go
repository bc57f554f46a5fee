package ui

import (
	"fmt"
	"strings"
	"testing"
)

func TestMenuLayoutColumns(t *testing.T) {
	m := NewMenu(DefaultTheme())
	var hints []MenuHint
	for i := 0; i < 8; i++ {
		hints = append(hints, MenuHint{Key: fmt.Sprint(i), Description: "hint"})
	}

	lines := strings.Split(m.layout(hints), "\n")
	if len(lines) != menuRows {
		t.Fatalf("got %d lines, want %d", len(lines), menuRows)
	}
	if !strings.Contains(lines[0], "<0>") || !strings.Contains(lines[0], "<6>") {
		t.Errorf("first row should hold hints 0 and 6: %q", lines[0])
	}
	if strings.Count(lines[5], "<") != 1 {
		t.Errorf("last row should hold only hint 5: %q", lines[5])
	}
}

func TestMenuLayoutEmpty(t *testing.T) {
	if got := NewMenu(DefaultTheme()).layout(nil); got != "" {
		t.Errorf("layout(nil) = %q", got)
	}
}
