package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
)

type deckRow struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r deckRow) toDomain() domain.Deck {
	return domain.Deck{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}

// InsertDeck inserts a new deck into the database.
func (db *DB) InsertDeck(deck domain.Deck) error {
	_, err := db.conn.Exec(`
		INSERT INTO decks (id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, deck.ID, deck.Name, deck.Description, utc(deck.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert deck %s: %w", deck.Name, err)
	}
	return nil
}

// GetDeck retrieves a deck by its ID.
func (db *DB) GetDeck(id uuid.UUID) (domain.Deck, error) {
	var r deckRow
	err := db.conn.Get(&r, `
		SELECT id, name, description, created_at
		FROM decks WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("deck %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to get deck %s: %w", id, err)
	}
	return r.toDomain(), nil
}

// FindDeckByName retrieves a deck by its unique name.
func (db *DB) FindDeckByName(name string) (domain.Deck, error) {
	var r deckRow
	err := db.conn.Get(&r, `
		SELECT id, name, description, created_at
		FROM decks WHERE name = ?
	`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deck{}, fmt.Errorf("deck %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return domain.Deck{}, fmt.Errorf("failed to find deck by name %q: %w", name, err)
	}
	return r.toDomain(), nil
}

// ListDecks retrieves all decks ordered by name.
func (db *DB) ListDecks() ([]domain.Deck, error) {
	var rows []deckRow
	if err := db.conn.Select(&rows, `
		SELECT id, name, description, created_at
		FROM decks ORDER BY name
	`); err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}

	decks := make([]domain.Deck, 0, len(rows))
	for _, r := range rows {
		decks = append(decks, r.toDomain())
	}
	return decks, nil
}

// DeleteDeck removes a deck and, through cascading foreign keys, its words
// and cards. Review logs are kept.
func (db *DB) DeleteDeck(id uuid.UUID) error {
	if _, err := db.conn.Exec(`DELETE FROM decks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete deck %s: %w", id, err)
	}
	return nil
}
