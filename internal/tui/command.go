package tui

import "strings"

// Command names accepted in command mode.
const (
	CmdNew    = "new"
	CmdOpen   = "open"
	CmdLogout = "logout"
	CmdHelp   = "help"
	CmdQuit   = "quit"
)

var commandAliases = map[string]string{
	"n":    CmdNew,
	"o":    CmdOpen,
	"h":    CmdHelp,
	"q":    CmdQuit,
	"q!":   CmdQuit,
	"exit": CmdQuit,
}

// CommandNames lists the full command names, for completion.
func CommandNames() []string {
	return []string{CmdHelp, CmdLogout, CmdNew, CmdOpen, CmdQuit}
}

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// ParseCommand parses a command string (without the leading ':').
// Aliases resolve to their full name.
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if full, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = full
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}
