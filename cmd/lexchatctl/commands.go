package main

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/lexchat/internal/chat"
	"github.com/matheus3301/lexchat/internal/chatapi"
	"github.com/matheus3301/lexchat/internal/lock"
	"github.com/matheus3301/lexchat/internal/session"
	"golang.org/x/term"
)

// PasswordEnv supplies the password non-interactively.
const PasswordEnv = "LEXCHAT_PASSWORD"

func sortedCommands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func cmdStatus(ctx context.Context, e *env, _ []string) error {
	type status struct {
		Session      string    `json:"session"`
		Backend      string    `json:"backend"`
		Reachable    bool      `json:"reachable"`
		Error        string    `json:"error,omitempty"`
		DaemonPID    int       `json:"daemon_pid,omitempty"`
		DaemonSince  time.Time `json:"daemon_since,omitempty"`
		DaemonAddr   string    `json:"daemon_addr,omitempty"`
		SignedIn     bool      `json:"signed_in"`
		UserID       int64     `json:"user_id,omitempty"`
		UserFullName string    `json:"user_full_name,omitempty"`
	}
	st := status{Session: e.sessionName, Backend: e.baseURL, SignedIn: e.sess.Authenticated()}
	if owner, held := lock.Probe(session.Dir(e.sessionName)); held {
		st.DaemonPID = owner.PID
		st.DaemonSince = owner.Since
		st.DaemonAddr = owner.Addr
	}
	if err := e.api.Health(ctx); err != nil {
		st.Error = err.Error()
	} else {
		st.Reachable = true
	}
	if u, ok := e.sess.User(); ok {
		st.UserID = u.UserID
		st.UserFullName = u.FullName
	}

	if e.jsonOut {
		outputJSON(st)
		return nil
	}
	fmt.Printf("Session:  %s\n", st.Session)
	fmt.Printf("Backend:  %s (%s)\n", st.Backend, reachable(st.Reachable, st.Error))
	if st.DaemonPID != 0 {
		fmt.Printf("Daemon:   lexchatd PID %d since %s", st.DaemonPID, st.DaemonSince.Local().Format(time.DateTime))
		if st.DaemonAddr != "" {
			fmt.Printf(" on %s", st.DaemonAddr)
		}
		fmt.Println()
	} else {
		fmt.Println("Daemon:   not running for this session")
	}
	if st.SignedIn {
		fmt.Printf("User:     %s (#%d)\n", st.UserFullName, st.UserID)
	} else {
		fmt.Println("User:     signed out")
	}
	return nil
}

func reachable(ok bool, errText string) string {
	if ok {
		return "reachable"
	}
	return "unreachable: " + errText
}

func cmdLogin(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("login")
	}
	password, err := readPassword()
	if err != nil {
		return err
	}
	resp, err := e.api.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	return e.signedIn(resp)
}

func cmdRegister(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return usageError("register")
	}
	password, err := readPassword()
	if err != nil {
		return err
	}
	resp, err := e.api.Register(ctx, &chatapi.RegisterRequest{
		Email:    args[0],
		FullName: strings.Join(args[1:], " "),
		Password: password,
	})
	if err != nil {
		return err
	}
	return e.signedIn(resp)
}

func (e *env) signedIn(resp *chatapi.LoginResponse) error {
	if err := session.EnsureDir(e.sessionName); err != nil {
		return err
	}
	if err := e.sess.Login(resp.User, resp.Token); err != nil {
		return fmt.Errorf("save login: %w", err)
	}
	if e.jsonOut {
		outputJSON(resp.User)
		return nil
	}
	fmt.Printf("Signed in as %s (#%d) on session %q\n", resp.User.FullName, resp.User.UserID, e.sessionName)
	return nil
}

func cmdLogout(_ context.Context, e *env, _ []string) error {
	if err := e.sess.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func cmdWhoami(_ context.Context, e *env, _ []string) error {
	u, _ := e.sess.User()
	if e.jsonOut {
		outputJSON(u)
		return nil
	}
	fmt.Printf("%s (#%d)\n", u.FullName, u.UserID)
	return nil
}

func cmdConversations(ctx context.Context, e *env, _ []string) error {
	self := e.sess.UserID()
	convs, err := e.api.ListConversations(ctx, self)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(convs)
		return nil
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	for _, c := range convs {
		unread := ""
		if n := c.Unread(); n > 0 {
			unread = fmt.Sprintf("(%d) ", n)
		}
		fmt.Printf("%6d  %s%-30s %s\n", c.ConversationID, unread, chat.DisplayName(c, self), chat.Preview(c, self))
	}
	return nil
}

func cmdMessages(ctx context.Context, e *env, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return usageError("messages")
	}
	conv, err := parseID(args[0])
	if err != nil {
		return err
	}
	limit, offset := 50, 0
	if len(args) > 1 {
		if limit, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid limit %q", args[1])
		}
	}
	if len(args) > 2 {
		if offset, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("invalid offset %q", args[2])
		}
	}
	self := e.sess.UserID()
	msgs, err := e.api.ListMessages(ctx, conv, self, limit, offset)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(msgs)
		return nil
	}
	for _, m := range msgs {
		sender := fmt.Sprintf("#%d", m.SenderID)
		switch {
		case m.SenderID == self:
			sender = "You"
		case m.Sender != nil && m.Sender.FullName != "":
			sender = m.Sender.FullName
		}
		fmt.Printf("[%s] %s: %s\n", m.SentAt.Local().Format(time.DateTime), sender, m.Content)
	}
	return nil
}

func cmdSend(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return usageError("send")
	}
	conv, err := parseID(args[0])
	if err != nil {
		return err
	}
	msg, err := e.api.SendMessage(ctx, conv, &chatapi.SendMessageRequest{
		SenderUserID: e.sess.UserID(),
		Content:      strings.Join(args[1:], " "),
		MessageType:  chatapi.MessageTypeText,
	})
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(msg)
		return nil
	}
	fmt.Printf("Sent message %s\n", msg.MessageID)
	return nil
}

func cmdRead(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("read")
	}
	conv, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := e.api.MarkRead(ctx, conv, e.sess.UserID()); err != nil {
		return err
	}
	fmt.Printf("Conversation %d marked read\n", conv)
	return nil
}

func cmdDirect(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("direct")
	}
	other, err := parseID(args[0])
	if err != nil {
		return err
	}
	conv, err := e.api.FindOrCreateDirect(ctx, e.sess.UserID(), other)
	if err != nil {
		return err
	}
	return printConversation(e, conv)
}

func cmdGroup(ctx context.Context, e *env, args []string) error {
	if len(args) < 2 {
		return usageError("group")
	}
	ids := make([]int64, 0, len(args)-1)
	for _, a := range args[1:] {
		id, err := parseID(a)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	title := args[0]
	group := true
	conv, err := e.api.CreateConversation(ctx, &chatapi.CreateConversationRequest{
		CreatorUserID:      e.sess.UserID(),
		ParticipantUserIDs: ids,
		Title:              &title,
		IsGroup:            &group,
	})
	if err != nil {
		return err
	}
	return printConversation(e, conv)
}

func printConversation(e *env, conv *chatapi.Conversation) error {
	if e.jsonOut {
		outputJSON(conv)
		return nil
	}
	fmt.Printf("Conversation %d: %s\n", conv.ConversationID, chat.DisplayName(*conv, e.sess.UserID()))
	return nil
}

func cmdAdd(ctx context.Context, e *env, args []string) error {
	if len(args) != 2 {
		return usageError("add")
	}
	conv, err := parseID(args[0])
	if err != nil {
		return err
	}
	user, err := parseID(args[1])
	if err != nil {
		return err
	}
	resp, err := e.api.AddParticipant(ctx, conv, e.sess.UserID(), user)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(resp)
		return nil
	}
	fmt.Println(resp.Message)
	return nil
}

func cmdParticipants(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return usageError("participants")
	}
	conv, err := parseID(args[0])
	if err != nil {
		return err
	}
	ps, err := e.api.ListParticipants(ctx, conv)
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(ps)
		return nil
	}
	for _, p := range ps {
		fmt.Printf("%6d  %-30s joined %s\n", p.UserID, p.User.FullName, p.JoinedAt.Local().Format(time.DateOnly))
	}
	return nil
}

func cmdSearch(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return usageError("search")
	}
	users, err := e.api.SearchUsers(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if e.jsonOut {
		outputJSON(users)
		return nil
	}
	if len(users) == 0 {
		fmt.Println("No users found.")
		return nil
	}
	for _, u := range users {
		email := ""
		if u.Email != nil {
			email = *u.Email
		}
		fmt.Printf("%6d  %-30s %s\n", u.UserID, u.FullName, email)
	}
	return nil
}

func cmdNews(ctx context.Context, e *env, args []string) error {
	query := url.Values{}
	if len(args) > 0 {
		query.Set("q", strings.Join(args, " "))
	}
	raw, err := e.api.News(ctx, query)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(raw, '\n'))
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func usageError(name string) error {
	return fmt.Errorf("usage: lexchatctl %s", commands[name].usage)
}

// readPassword takes the password from PasswordEnv, the terminal without
// echo, or one line of piped stdin.
func readPassword() (string, error) {
	if pw := os.Getenv(PasswordEnv); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
