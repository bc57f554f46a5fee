package session

import (
	"os"
	"path/filepath"

	"github.com/matheus3301/lexchat/internal/config"
)

const (
	// HomeEnv overrides the base directory when set.
	HomeEnv = "LEXCHAT_HOME"
	// SessionEnv names the session when no --session flag is given.
	SessionEnv = "LEXCHAT_SESSION"

	DefaultSessionName = "main"
)

// Resolve picks the session name: the --session flag, then $LEXCHAT_SESSION,
// then default_session from config.toml, then "main".
func Resolve(flag string) string {
	if flag != "" {
		return flag
	}
	if name := os.Getenv(SessionEnv); name != "" {
		return name
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}

// BaseDir returns $LEXCHAT_HOME, or ~/.lexchat.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lexchat")
}

// Dir returns the session-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "sessions", name)
}

// LockPath returns the daemon lock file path for a session.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the development backend database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "lexchat.db")
}

// TokenPath returns the persisted bearer token path.
func TokenPath(name string) string {
	return filepath.Join(Dir(name), "token.toml")
}

// SecretPath returns the file holding the daemon's generated signing secret.
func SecretPath(name string) string {
	return filepath.Join(Dir(name), "jwt.secret")
}

// LogDir returns the log directory for a session.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "lexchatd.log")
}

// ClientLogPath returns the terminal client log file path.
func ClientLogPath(name string) string {
	return filepath.Join(LogDir(name), "lexchat.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the session directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
