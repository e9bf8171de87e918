// Package storage provides SQLite persistence for decks, words, scheduling
// state and review history.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// ErrNotFound is returned when a requested row does not exist.
// Check with errors.Is.
var ErrNotFound = errors.New("storage: not found")

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sqlx.DB
}

// Open creates a new database connection and ensures the schema is up to
// date. Use ":memory:" for an ephemeral database.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer, and an in-memory database lives and
	// dies with its connection. One connection serves both cases.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// utc normalizes a timestamp before binding. The driver stores DATETIME
// values as text and SQLite compares them as text, so every stored time
// must carry the same zone.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTimeUTC(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// ResetData wipes all review history, cards, words, decks and sources in a
// single transaction. This is the only code path that deletes review logs.
func (db *DB) ResetData() error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"review_logs", "cards", "words", "sources", "decks"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}
	return nil
}
