package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source represents a word-list source, either a local directory or a Git
// URL, and the deck its entries land in.
type Source struct {
	ID          int64        `db:"id"`
	Path        string       `db:"path"`
	Type        string       `db:"type"` // "local" or "git"
	DeckID      uuid.UUID    `db:"deck_id"`
	LastScanned sql.NullTime `db:"last_scanned"` // Use NullTime for nullable last_scanned
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(path, sourceType string, deckID uuid.UUID) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type, deck_id)
		VALUES (?, ?, ?)
	`, path, sourceType, deckID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path.
func (db *DB) FindSourceByPath(path string) (Source, error) {
	var s Source
	err := db.conn.Get(&s, `
		SELECT id, path, type, deck_id, last_scanned
		FROM sources WHERE path = ?
	`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("source %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return Source{}, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	var sources []Source
	if err := db.conn.Select(&sources, `
		SELECT id, path, type, deck_id, last_scanned
		FROM sources ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	return sources, nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64, scannedAt time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, utc(scannedAt), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// DeleteSource removes a source. Words already imported from it are kept.
func (db *DB) DeleteSource(sourceID int64) error {
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}
	return nil
}
