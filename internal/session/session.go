package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/lexchat/internal/chatapi"
)

// ErrNoToken is returned by Restore when nothing has been persisted.
var ErrNoToken = errors.New("no saved token")

// Session holds the authenticated identity for one named profile. It is
// passed explicitly to everything that needs the current user or token.
type Session struct {
	name      string
	tokenPath string

	mu       sync.RWMutex
	user     *chatapi.UserSummary
	token    string
	teardown []func()
}

// New creates an unauthenticated session persisting to TokenPath(name).
func New(name string) *Session {
	return NewAt(name, TokenPath(name))
}

// NewAt creates a session persisting its token to tokenPath. An empty path
// disables persistence.
func NewAt(name, tokenPath string) *Session {
	return &Session{name: name, tokenPath: tokenPath}
}

type tokenFile struct {
	Token    string    `toml:"token"`
	UserID   int64     `toml:"user_id"`
	FullName string    `toml:"full_name"`
	Email    string    `toml:"email,omitempty"`
	SavedAt  time.Time `toml:"saved_at"`
}

// Name returns the session profile name.
func (s *Session) Name() string { return s.name }

// Login installs the identity and token and persists them.
func (s *Session) Login(user chatapi.UserSummary, token string) error {
	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()
	return s.save(user, token)
}

// Restore loads the persisted token, if any, into the session.
func (s *Session) Restore() error {
	if s.tokenPath == "" {
		return ErrNoToken
	}
	var tf tokenFile
	if _, err := toml.DecodeFile(s.tokenPath, &tf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNoToken
		}
		return fmt.Errorf("read token file: %w", err)
	}
	if tf.Token == "" {
		return ErrNoToken
	}
	user := chatapi.UserSummary{UserID: tf.UserID, FullName: tf.FullName}
	if tf.Email != "" {
		email := tf.Email
		user.Email = &email
	}
	s.mu.Lock()
	s.user = &user
	s.token = tf.Token
	s.mu.Unlock()
	return nil
}

// Logout clears the identity, removes the persisted token and runs the
// registered teardown hooks in reverse order.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	hooks := append([]func(){}, s.teardown...)
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	if s.tokenPath == "" {
		return nil
	}
	if err := os.Remove(s.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// OnLogout registers fn to run when the session is torn down.
func (s *Session) OnLogout(fn func()) {
	s.mu.Lock()
	s.teardown = append(s.teardown, fn)
	s.mu.Unlock()
}

// User returns the authenticated user, or false before login.
func (s *Session) User() (chatapi.UserSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return chatapi.UserSummary{}, false
	}
	return *s.user, true
}

// UserID returns the authenticated user's id, or 0.
func (s *Session) UserID() int64 {
	u, _ := s.User()
	return u.UserID
}

// Token implements chatapi.TokenSource.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether a token is installed.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

func (s *Session) save(user chatapi.UserSummary, token string) error {
	if s.tokenPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.tokenPath), 0700); err != nil {
		return err
	}
	tf := tokenFile{Token: token, UserID: user.UserID, FullName: user.FullName, SavedAt: time.Now().UTC()}
	if user.Email != nil {
		tf.Email = *user.Email
	}
	f, err := os.OpenFile(s.tokenPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(tf)
}
