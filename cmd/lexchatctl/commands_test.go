package main

import "testing"

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSortedCommands(t *testing.T) {
	names := sortedCommands()
	if len(names) != len(commands) {
		t.Fatalf("got %d names, want %d", len(names), len(commands))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("not sorted: %v", names)
		}
	}
}

func TestUsageError(t *testing.T) {
	err := usageError("send")
	if got, want := err.Error(), "usage: lexchatctl send <conversation> <text...>"; got != want {
		t.Errorf("usageError = %q, want %q", got, want)
	}
}
