package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want Command
	}{
		{"quit", Command{Name: CmdQuit}},
		{"q", Command{Name: CmdQuit}},
		{"  HELP ", Command{Name: CmdHelp}},
		{"open  John Doe ", Command{Name: CmdOpen, Args: "John Doe"}},
		{"o mary", Command{Name: CmdOpen, Args: "mary"}},
		{"logout", Command{Name: CmdLogout}},
		{"bogus x", Command{Name: "bogus", Args: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseCommand(tt.in); got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
