package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/antonkh/bookcatalog/models"
)

// CreateUser stores a new user and returns its id. A duplicate username
// maps to ErrUsernameTaken.
func (db *DB) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := db.exec(ctx, `
INSERT INTO user (username, first_name, last_name, password_hash, is_staff, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username, user.FirstName, user.LastName, user.Password,
		boolToInt(user.IsStaff), user.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// UserByUsername returns nil, nil when no such user exists.
func (db *DB) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.userBy(ctx, `username = ?`, username)
}

// UserByID returns nil, nil when no such user exists.
func (db *DB) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.userBy(ctx, `id = ?`, id)
}

func (db *DB) userBy(ctx context.Context, where string, arg any) (*models.User, error) {
	var (
		user      models.User
		isStaff   int
		createdAt string
	)
	err := db.queryRow(ctx, `
SELECT id, username, first_name, last_name, password_hash, is_staff, created_at
FROM user WHERE `+where, arg).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Password, &isStaff, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	user.IsStaff = isStaff == 1
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("user created_at: %w", err)
	}
	return &user, nil
}
