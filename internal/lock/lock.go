package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// FileName is the lock file created inside the guarded directory.
const FileName = "LOCK"

// LockHeldError is returned when another lexchatd owns the directory.
type LockHeldError struct {
	Owner Owner
	Path  string
}

func (e *LockHeldError) Error() string {
	msg := fmt.Sprintf("lexchatd already running (PID %d, lock %s", e.Owner.PID, e.Path)
	if e.Owner.Addr != "" {
		msg += ", listening on " + e.Owner.Addr
	}
	return msg + ")"
}

// Owner is what the holding process recorded in the lock file.
type Owner struct {
	PID   int
	Since time.Time
	Addr  string
}

// Lock is an exclusive flock on a session directory, held until Release.
type Lock struct {
	file  *os.File
	path  string
	owner Owner
}

// Acquire takes an exclusive flock on dir/LOCK and records the owner. It
// fails with *LockHeldError while another process holds it.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		owner, _ := parseOwner(readFile(path))
		return nil, &LockHeldError{Owner: owner, Path: path}
	}

	l := &Lock{
		file:  f,
		path:  path,
		owner: Owner{PID: os.Getpid(), Since: time.Now().UTC().Truncate(time.Second)},
	}
	if err := l.write(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// SetAddr records the address the owner serves on, for Probe callers.
func (l *Lock) SetAddr(addr string) error {
	if l == nil || l.file == nil {
		return nil
	}
	l.owner.Addr = addr
	return l.write()
}

func (l *Lock) write() error {
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	if _, err := l.file.WriteAt([]byte(formatOwner(l.owner)), 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// Release removes the lock file and drops the flock. It is safe on a nil
// Lock and when called twice.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Probe reports the current owner of dir's lock. ok is false when no
// process holds it, including when a stale file was left behind.
func Probe(dir string) (owner Owner, ok bool) {
	path := filepath.Join(dir, FileName)
	f, err := os.Open(path)
	if err != nil {
		return Owner{}, false
	}
	defer func() { _ = f.Close() }()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return Owner{}, false
	}
	owner, _ = parseOwner(readFile(path))
	return owner, true
}

func readFile(path string) string {
	data, _ := os.ReadFile(path)
	return string(data)
}

func formatOwner(o Owner) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pid=%d\ntime=%s\n", o.PID, o.Since.Format(time.RFC3339))
	if o.Addr != "" {
		fmt.Fprintf(&b, "addr=%s\n", o.Addr)
	}
	return b.String()
}

func parseOwner(content string) (Owner, bool) {
	var o Owner
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "time":
			o.Since, _ = time.Parse(time.RFC3339, value)
		case "addr":
			o.Addr = value
		}
	}
	return o, o.PID > 0
}
