package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
)

// DB provides SQLite-backed persistence for the catalog.
//
// Every statement goes through the exec/query helpers so the statement
// counter stays accurate; tests use it to pin round-trip bounds on the
// list path.
type DB struct {
	sql   *sql.DB
	stmts atomic.Int64
}

// Open creates the store at the given path, configures pragmas and runs
// the schema. Safe to call on an existing database.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &DB{sql: db}, nil
}

func (db *DB) Close() error {
	return db.sql.Close()
}

// StatementCount returns the number of statements executed so far.
func (db *DB) StatementCount() int64 {
	return db.stmts.Load()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.stmts.Add(1)
	return db.sql.ExecContext(ctx, query, args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db.stmts.Add(1)
	return db.sql.QueryContext(ctx, query, args...)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	db.stmts.Add(1)
	return db.sql.QueryRowContext(ctx, query, args...)
}

const schema = `
CREATE TABLE IF NOT EXISTS user (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL DEFAULT '',
	is_staff INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS book (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	price TEXT NOT NULL,
	author_name TEXT NOT NULL,
	owner_id INTEGER REFERENCES user(id) ON DELETE SET NULL,
	rating TEXT
);

CREATE INDEX IF NOT EXISTS idx_book_owner_id ON book(owner_id);

CREATE TABLE IF NOT EXISTS user_book_relation (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES user(id) ON DELETE CASCADE,
	book_id INTEGER NOT NULL REFERENCES book(id) ON DELETE CASCADE,
	liked INTEGER NOT NULL DEFAULT 0,
	in_bookmarks INTEGER NOT NULL DEFAULT 0,
	rate INTEGER CHECK (rate BETWEEN 1 AND 5),
	UNIQUE (user_id, book_id)
);

CREATE INDEX IF NOT EXISTS idx_relation_book_id ON user_book_relation(book_id);
CREATE INDEX IF NOT EXISTS idx_relation_user_id ON user_book_relation(user_id);
`

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	return d, nil
}
