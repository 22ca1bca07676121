// Package testutil provides an in-memory SQLite database with the
// application schema for package tests.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

var schema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'GUEST',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE movies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL DEFAULT '',
		director TEXT NOT NULL DEFAULT '',
		cast_list TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		duration_min INTEGER NOT NULL DEFAULT 0,
		release_date DATE NOT NULL,
		end_date DATE NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE cinemas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id INTEGER NULL REFERENCES users(id),
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE screens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cinema_id INTEGER NOT NULL REFERENCES cinemas(id),
		name TEXT NOT NULL,
		rows_count INTEGER NOT NULL,
		cols_count INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE showtimes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id INTEGER NOT NULL REFERENCES movies(id),
		cinema_id INTEGER NOT NULL REFERENCES cinemas(id),
		screen_id INTEGER NOT NULL REFERENCES screens(id),
		start_at TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		ticket_price_cents INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE reservations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		movie_id INTEGER NOT NULL REFERENCES movies(id),
		cinema_id INTEGER NOT NULL REFERENCES cinemas(id),
		screen_id INTEGER NOT NULL REFERENCES screens(id),
		show_date DATE NOT NULL,
		start_at TEXT NOT NULL,
		seat_labels TEXT NOT NULL,
		ticket_price_cents INTEGER NOT NULL,
		total_cents INTEGER NOT NULL,
		username TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		paid BOOLEAN NOT NULL DEFAULT 0,
		checked_in BOOLEAN NOT NULL DEFAULT 0,
		qr_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE reservation_seats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		reservation_id INTEGER NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		screen_id INTEGER NOT NULL,
		show_date DATE NOT NULL,
		start_at TEXT NOT NULL,
		seat_label TEXT COLLATE BINARY NOT NULL,
		UNIQUE (screen_id, show_date, start_at, seat_label)
	)`,
}

// NewDB opens a private in-memory database with the schema applied. The pool
// is pinned to one connection so every query sees the same database.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range schema {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return db
}
