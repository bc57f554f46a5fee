package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrNotParticipant is returned when a user acts on a conversation they are not in.
	ErrNotParticipant = errors.New("not a participant")
)

// DB wraps the SQLite database behind the development chat backend.
type DB struct {
	*sql.DB
	now func() time.Time
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, now: time.Now}, nil
}

func (db *DB) millis() int64 { return db.now().UnixMilli() }

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
