package store

import (
	"database/sql"
	"strings"
)

// CreateUser inserts a user and returns it with its assigned id.
func (db *DB) CreateUser(fullName, email, passwordHash, role string) (*User, error) {
	if role == "" {
		role = "client"
	}
	now := db.millis()
	res, err := db.Exec(`
		INSERT INTO users (full_name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		fullName, strings.TrimSpace(email), passwordHash, role, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &User{ID: id, FullName: fullName, Email: email, PasswordHash: passwordHash, Role: role, CreatedAt: now}, nil
}

const userColumns = `user_id, full_name, email, password_hash, role, profile_picture, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.ProfilePicture, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns a user by id, or nil when it does not exist.
func (db *DB) GetUser(id int64) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE user_id = ?`, id))
}

// GetUserByEmail returns a user by email, ignoring case, or nil.
func (db *DB) GetUserByEmail(email string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.TrimSpace(email)))
}

// SearchUsers matches query against names and emails.
func (db *DB) SearchUsers(query string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := db.Query(`
		SELECT `+userColumns+`
		FROM users
		WHERE full_name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'
		ORDER BY full_name
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
