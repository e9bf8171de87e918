package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
)

type wordRow struct {
	ID          uuid.UUID     `db:"id"`
	DeckID      uuid.UUID     `db:"deck_id"`
	Term        string        `db:"term"`
	Phonetic    string        `db:"phonetic"`
	Definition  string        `db:"definition"`
	Translation string        `db:"translation"`
	Example     string        `db:"example"`
	Mnemonic    string        `db:"mnemonic"`
	Hash        string        `db:"hash"`
	Familiar    bool          `db:"familiar"`
	SourceID    sql.NullInt64 `db:"source_id"`   // Use NullInt64 for nullable source_id
	EnrichedAt  sql.NullTime  `db:"enriched_at"` // Use NullTime for nullable enriched_at
	CreatedAt   time.Time     `db:"created_at"`
}

func (r wordRow) toDomain() domain.Word {
	w := domain.Word{
		ID:          r.ID,
		DeckID:      r.DeckID,
		Term:        r.Term,
		Phonetic:    r.Phonetic,
		Definition:  r.Definition,
		Translation: r.Translation,
		Example:     r.Example,
		Mnemonic:    r.Mnemonic,
		Hash:        r.Hash,
		Familiar:    r.Familiar,
		CreatedAt:   r.CreatedAt,
	}
	if r.SourceID.Valid {
		id := r.SourceID.Int64
		w.SourceID = &id
	}
	if r.EnrichedAt.Valid {
		t := r.EnrichedAt.Time
		w.EnrichedAt = &t
	}
	return w
}

const wordColumns = `id, deck_id, term, phonetic, definition, translation, example, mnemonic, hash, familiar, source_id, enriched_at, created_at`

// InsertWordWithCard inserts a word together with its scheduling card in a
// single transaction, so a word can never exist without a card.
func (db *DB) InsertWordWithCard(word domain.Word, card fsrs.Card) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	var sourceID sql.NullInt64
	if word.SourceID != nil {
		sourceID = sql.NullInt64{Int64: *word.SourceID, Valid: true}
	}

	if _, err := tx.Exec(`
		INSERT INTO words (`+wordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		word.ID,
		word.DeckID,
		word.Term,
		word.Phonetic,
		word.Definition,
		word.Translation,
		word.Example,
		word.Mnemonic,
		word.Hash,
		word.Familiar,
		sourceID,
		nullTimeUTC(word.EnrichedAt),
		utc(word.CreatedAt),
	); err != nil {
		return fmt.Errorf("failed to insert word %q: %w", word.Term, err)
	}

	if err := insertCardTx(tx, card, word.ID, word.DeckID); err != nil {
		return fmt.Errorf("failed to insert card for word %q: %w", word.Term, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert transaction: %w", err)
	}
	return nil
}

// GetWord retrieves a word by its ID.
func (db *DB) GetWord(id uuid.UUID) (domain.Word, error) {
	var r wordRow
	err := db.conn.Get(&r, `SELECT `+wordColumns+` FROM words WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Word{}, fmt.Errorf("word %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Word{}, fmt.Errorf("failed to get word %s: %w", id, err)
	}
	return r.toDomain(), nil
}

// FindWordByHash retrieves a word in a deck by its content fingerprint.
func (db *DB) FindWordByHash(deckID uuid.UUID, hash string) (domain.Word, error) {
	var r wordRow
	err := db.conn.Get(&r, `
		SELECT `+wordColumns+` FROM words WHERE deck_id = ? AND hash = ?
	`, deckID, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Word{}, fmt.Errorf("word with hash %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return domain.Word{}, fmt.Errorf("failed to find word by hash %s: %w", hash, err)
	}
	return r.toDomain(), nil
}

// ListWordsByDeck retrieves all words in a deck ordered by creation time.
func (db *DB) ListWordsByDeck(deckID uuid.UUID) ([]domain.Word, error) {
	var rows []wordRow
	if err := db.conn.Select(&rows, `
		SELECT `+wordColumns+` FROM words WHERE deck_id = ? ORDER BY created_at, id
	`, deckID); err != nil {
		return nil, fmt.Errorf("failed to list words for deck %s: %w", deckID, err)
	}

	words := make([]domain.Word, 0, len(rows))
	for _, r := range rows {
		words = append(words, r.toDomain())
	}
	return words, nil
}

// ListWordsBySource retrieves all words a source imported, so a sync can
// spot entries that vanished from their files.
func (db *DB) ListWordsBySource(sourceID int64) ([]domain.Word, error) {
	var rows []wordRow
	if err := db.conn.Select(&rows, `
		SELECT `+wordColumns+` FROM words WHERE source_id = ? ORDER BY created_at, id
	`, sourceID); err != nil {
		return nil, fmt.Errorf("failed to list words for source ID %d: %w", sourceID, err)
	}

	words := make([]domain.Word, 0, len(rows))
	for _, r := range rows {
		words = append(words, r.toDomain())
	}
	return words, nil
}

// SetWordFamiliar marks or unmarks a word as already known. Familiar words
// are skipped by the review and new-card queues but keep their history.
func (db *DB) SetWordFamiliar(id uuid.UUID, familiar bool) error {
	res, err := db.conn.Exec(`UPDATE words SET familiar = ? WHERE id = ?`, familiar, id)
	if err != nil {
		return fmt.Errorf("failed to set familiar for word %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("word %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveEnrichment stores AI-generated content for a word and stamps the
// enrichment time.
func (db *DB) SaveEnrichment(id uuid.UUID, e domain.Enrichment, at time.Time) error {
	res, err := db.conn.Exec(`
		UPDATE words
		SET phonetic = ?, definition = ?, translation = ?, example = ?, mnemonic = ?, enriched_at = ?
		WHERE id = ?
	`, e.Phonetic, e.Definition, e.Translation, e.Example, e.Mnemonic, utc(at), id)
	if err != nil {
		return fmt.Errorf("failed to save enrichment for word %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("word %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListUnenrichedWords retrieves words that have never been enriched, oldest
// first, up to the given limit.
func (db *DB) ListUnenrichedWords(limit int) ([]domain.Word, error) {
	var rows []wordRow
	if err := db.conn.Select(&rows, `
		SELECT `+wordColumns+` FROM words
		WHERE enriched_at IS NULL
		ORDER BY created_at, id
		LIMIT ?
	`, limit); err != nil {
		return nil, fmt.Errorf("failed to list unenriched words: %w", err)
	}

	words := make([]domain.Word, 0, len(rows))
	for _, r := range rows {
		words = append(words, r.toDomain())
	}
	return words, nil
}

// DeleteWord removes a word and, through the cascading foreign key, its
// card. Review logs are kept.
func (db *DB) DeleteWord(id uuid.UUID) error {
	if _, err := db.conn.Exec(`DELETE FROM words WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete word %s: %w", id, err)
	}
	return nil
}
