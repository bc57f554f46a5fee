package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBaseDirHonoursEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	if got := BaseDir(); got != dir {
		t.Errorf("BaseDir() = %q, want %q", got, dir)
	}
	if got := Dir("main"); got != filepath.Join(dir, "sessions", "main") {
		t.Errorf("Dir(main) = %q", got)
	}
}

func TestDefaultBaseDir(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, _ := os.UserHomeDir()
	if got := BaseDir(); got != filepath.Join(home, ".lexchat") {
		t.Errorf("BaseDir() = %q", got)
	}
}

func TestSessionPaths(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"lock", LockPath("test"), filepath.Join("sessions", "test", "LOCK")},
		{"db", DBPath("test"), filepath.Join("sessions", "test", "lexchat.db")},
		{"token", TokenPath("test"), filepath.Join("sessions", "test", "token.toml")},
		{"secret", SecretPath("test"), filepath.Join("sessions", "test", "jwt.secret")},
		{"daemon log", LogPath("test"), filepath.Join("sessions", "test", "logs", "lexchatd.log")},
		{"client log", ClientLogPath("test"), filepath.Join("sessions", "test", "logs", "lexchat.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasSuffix(tt.got, tt.want) {
				t.Errorf("path = %q, want suffix %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(LogDir("test"))
	if err != nil {
		t.Fatalf("log dir not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("log dir is not a directory")
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("perm = %o, want 0700", perm)
	}
}

func TestResolvePrecedence(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	t.Setenv(SessionEnv, "")
	if err := os.MkdirAll(BaseDir(), 0700); err != nil {
		t.Fatal(err)
	}

	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultSessionName)
	}
	if err := os.WriteFile(ConfigPath(), []byte(`default_session = "office"`+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "office" {
		t.Errorf("Resolve() with config = %q, want office", got)
	}
	t.Setenv(SessionEnv, "clinic")
	if got := Resolve(""); got != "clinic" {
		t.Errorf("Resolve() with %s = %q, want clinic", SessionEnv, got)
	}
	if got := Resolve("work"); got != "work" {
		t.Errorf("Resolve(work) = %q, flag should win", got)
	}
}
