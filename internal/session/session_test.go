package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/lexchat/internal/chatapi"
)

func TestLoginPersistsAndRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.toml")
	email := "ana@example.com"
	user := chatapi.UserSummary{UserID: 7, FullName: "Ana Lima", Email: &email}

	s := NewAt("main", path)
	if s.Authenticated() {
		t.Fatal("new session should not be authenticated")
	}
	if err := s.Login(user, "tok-1"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file perm = %o, want 0600", perm)
	}

	restored := NewAt("main", path)
	if err := restored.Restore(); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.Token() != "tok-1" || restored.UserID() != 7 {
		t.Errorf("restored token=%q user=%d", restored.Token(), restored.UserID())
	}
	got, ok := restored.User()
	if !ok || got.FullName != "Ana Lima" || got.Email == nil || *got.Email != email {
		t.Errorf("restored user = %+v", got)
	}
}

func TestRestoreWithoutToken(t *testing.T) {
	s := NewAt("main", filepath.Join(t.TempDir(), "token.toml"))
	if err := s.Restore(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Restore() error = %v, want ErrNoToken", err)
	}
}

func TestLogoutRunsTeardownAndRemovesToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.toml")
	s := NewAt("main", path)
	var order []string
	s.OnLogout(func() { order = append(order, "first") })
	s.OnLogout(func() { order = append(order, "second") })

	if err := s.Login(chatapi.UserSummary{UserID: 1}, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := s.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if s.Authenticated() || s.UserID() != 0 {
		t.Error("identity survived logout")
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("token file still present: %v", err)
	}
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("teardown order = %v", order)
	}
}

func TestSessionIsTokenSource(t *testing.T) {
	var _ chatapi.TokenSource = NewAt("main", "")
}

func TestInMemorySession(t *testing.T) {
	s := NewAt("scratch", "")
	if err := s.Login(chatapi.UserSummary{UserID: 3}, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := s.Logout(); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Restore() error = %v", err)
	}
}
