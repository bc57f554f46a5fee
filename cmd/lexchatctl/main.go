package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/config"
	"github.com/matheus3301/lexchat/internal/session"
)

// env is what every subcommand works with.
type env struct {
	sessionName string
	baseURL     string
	jsonOut     bool
	sess        *session.Session
	api         *chatapi.Client
}

type command struct {
	usage string
	help  string
	auth  bool
	run   func(ctx context.Context, e *env, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"status":        {"status", "Show daemon and login state", false, cmdStatus},
		"login":         {"login <email>", "Sign in (password from LEXCHAT_PASSWORD or prompt)", false, cmdLogin},
		"register":      {"register <email> <full name...>", "Create an account and sign in", false, cmdRegister},
		"logout":        {"logout", "Forget the saved login", false, cmdLogout},
		"whoami":        {"whoami", "Show the signed-in user", true, cmdWhoami},
		"conversations": {"conversations", "List conversations with unread counts", true, cmdConversations},
		"messages":      {"messages <conversation> [limit] [offset]", "Show one page of a thread", true, cmdMessages},
		"send":          {"send <conversation> <text...>", "Send a message", true, cmdSend},
		"read":          {"read <conversation>", "Mark a conversation read", true, cmdRead},
		"direct":        {"direct <user>", "Find or create a direct conversation", true, cmdDirect},
		"group":         {"group <title> <user> [user...]", "Create a group conversation", true, cmdGroup},
		"add":           {"add <conversation> <user>", "Add a participant to a group", true, cmdAdd},
		"participants":  {"participants <conversation>", "List participants", true, cmdParticipants},
		"search":        {"search <query>", "Search users by name or email", true, cmdSearch},
		"news":          {"news [query]", "Fetch legal news through the backend proxy", false, cmdNews},
	}
}

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	apiFlag := flag.String("api", "", "backend base URL (overrides config api.base_url)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	timeoutFlag := flag.Duration("timeout", 10*time.Second, "overall request timeout")
	flag.Usage = printUsage
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadOrDefault(session.ConfigPath())
	if err != nil {
		fatal(fmt.Errorf("load config: %w", err))
	}
	e := &env{
		sessionName: sessionName,
		baseURL:     cfg.API.BaseURL,
		jsonOut:     *jsonFlag,
		sess:        session.New(sessionName),
	}
	if *apiFlag != "" {
		e.baseURL = *apiFlag
	}
	if err := e.sess.Restore(); err != nil && !errors.Is(err, session.ErrNoToken) {
		fatal(err)
	}
	if cmd.auth && !e.sess.Authenticated() {
		fatal(fmt.Errorf("not signed in to session %q; run: lexchatctl login <email>", sessionName))
	}
	tlsConfig, err := cfg.API.TLSConfig()
	if err != nil {
		fatal(err)
	}
	e.api, err = chatapi.New(e.baseURL,
		chatapi.WithTokenSource(e.sess),
		chatapi.WithTLSConfig(tlsConfig),
		chatapi.WithTimeout(cfg.API.Timeout.Duration),
	)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeoutFlag)
	defer cancel()

	if err := cmd.run(ctx, e, args[1:]); err != nil {
		if chatapi.IsUnauthorized(err) {
			err = fmt.Errorf("%w (saved login rejected; run: lexchatctl login <email>)", err)
		}
		cancel()
		fatal(err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: lexchatctl [--session <name>] [--api <url>] [--json] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	for _, name := range sortedCommands() {
		c := commands[name]
		fmt.Fprintf(os.Stderr, "  %-44s %s\n", c.usage, c.help)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
