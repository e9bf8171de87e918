package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/domain"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
)

type cardRow struct {
	ID            uuid.UUID    `db:"id"`
	WordID        uuid.UUID    `db:"word_id"`
	DeckID        uuid.UUID    `db:"deck_id"`
	Due           time.Time    `db:"due"`
	State         int          `db:"state"`
	Stability     float64      `db:"stability"`
	Difficulty    float64      `db:"difficulty"`
	ElapsedDays   float64      `db:"elapsed_days"`
	ScheduledDays float64      `db:"scheduled_days"`
	Reps          int          `db:"reps"`
	Lapses        int          `db:"lapses"`
	LastReview    sql.NullTime `db:"last_review"` // Use NullTime for nullable last_review
	CreatedAt     time.Time    `db:"created_at"`
}

func (r cardRow) toCard() fsrs.Card {
	c := fsrs.Card{
		ID:            r.ID,
		Due:           r.Due,
		State:         fsrs.State(r.State),
		Stability:     r.Stability,
		Difficulty:    r.Difficulty,
		ElapsedDays:   r.ElapsedDays,
		ScheduledDays: r.ScheduledDays,
		Reps:          r.Reps,
		Lapses:        r.Lapses,
		CreatedAt:     r.CreatedAt,
	}
	if r.LastReview.Valid {
		t := r.LastReview.Time
		c.LastReview = &t
	}
	return c
}

// CardWithWord pairs a card's scheduling state with the word it drills.
type CardWithWord struct {
	Card fsrs.Card
	Word domain.Word
}

type cardWordRow struct {
	cardRow
	Word wordRow `db:"word"`
}

func (r cardWordRow) toDomain() CardWithWord {
	return CardWithWord{Card: r.toCard(), Word: r.Word.toDomain()}
}

const cardColumns = `c.id, c.word_id, c.deck_id, c.due, c.state, c.stability, c.difficulty,
	c.elapsed_days, c.scheduled_days, c.reps, c.lapses, c.last_review, c.created_at`

const cardWordColumns = cardColumns + `,
	w.id AS "word.id", w.deck_id AS "word.deck_id", w.term AS "word.term",
	w.phonetic AS "word.phonetic", w.definition AS "word.definition",
	w.translation AS "word.translation", w.example AS "word.example",
	w.mnemonic AS "word.mnemonic", w.hash AS "word.hash",
	w.familiar AS "word.familiar", w.source_id AS "word.source_id",
	w.enriched_at AS "word.enriched_at", w.created_at AS "word.created_at"`

func insertCardTx(tx *sqlx.Tx, card fsrs.Card, wordID, deckID uuid.UUID) error {
	_, err := tx.Exec(`
		INSERT INTO cards (id, word_id, deck_id, due, state, stability, difficulty,
			elapsed_days, scheduled_days, reps, lapses, last_review, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		wordID,
		deckID,
		utc(card.Due),
		int(card.State),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		nullTimeUTC(card.LastReview),
		utc(card.CreatedAt),
	)
	return err
}

func updateCardTx(tx *sqlx.Tx, card fsrs.Card) error {
	res, err := tx.Exec(`
		UPDATE cards
		SET due = ?, state = ?, stability = ?, difficulty = ?, elapsed_days = ?,
			scheduled_days = ?, reps = ?, lapses = ?, last_review = ?
		WHERE id = ?
	`,
		utc(card.Due),
		int(card.State),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		nullTimeUTC(card.LastReview),
		card.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("card %s: %w", card.ID, ErrNotFound)
	}
	return nil
}

// GetCard retrieves a card's scheduling state by its ID.
func (db *DB) GetCard(id uuid.UUID) (fsrs.Card, error) {
	var r cardRow
	err := db.conn.Get(&r, `SELECT `+cardColumns+` FROM cards c WHERE c.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fsrs.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return fsrs.Card{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return r.toCard(), nil
}

// GetCardWithWord retrieves a card together with the word it drills.
func (db *DB) GetCardWithWord(id uuid.UUID) (CardWithWord, error) {
	var r cardWordRow
	err := db.conn.Get(&r, `
		SELECT `+cardWordColumns+`
		FROM cards c
		JOIN words w ON w.id = c.word_id
		WHERE c.id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return CardWithWord{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return CardWithWord{}, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return r.toDomain(), nil
}

// DueCards retrieves cards whose due time has passed, soonest first. Cards
// still in the New state and cards of familiar words are excluded. Pass
// uuid.Nil as deckID to search every deck.
func (db *DB) DueCards(deckID uuid.UUID, now time.Time, limit int) ([]CardWithWord, error) {
	query := `
		SELECT ` + cardWordColumns + `
		FROM cards c
		JOIN words w ON w.id = c.word_id
		WHERE c.state != 0 AND c.due <= ? AND w.familiar = 0`
	args := []any{utc(now)}

	if deckID != uuid.Nil {
		query += ` AND c.deck_id = ?`
		args = append(args, deckID)
	}
	query += ` ORDER BY c.due, c.id LIMIT ?`
	args = append(args, limit)

	var rows []cardWordRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}

	cards := make([]CardWithWord, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.toDomain())
	}
	return cards, nil
}

// NewCards retrieves cards that have never been reviewed, oldest word first.
// Cards of familiar words are excluded. Pass uuid.Nil as deckID to search
// every deck.
func (db *DB) NewCards(deckID uuid.UUID, limit int) ([]CardWithWord, error) {
	query := `
		SELECT ` + cardWordColumns + `
		FROM cards c
		JOIN words w ON w.id = c.word_id
		WHERE c.state = 0 AND w.familiar = 0`
	args := []any{}

	if deckID != uuid.Nil {
		query += ` AND c.deck_id = ?`
		args = append(args, deckID)
	}
	query += ` ORDER BY w.created_at, w.id LIMIT ?`
	args = append(args, limit)

	var rows []cardWordRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get new cards: %w", err)
	}

	cards := make([]CardWithWord, 0, len(rows))
	for _, r := range rows {
		cards = append(cards, r.toDomain())
	}
	return cards, nil
}

// QueueCounts summarises how much work is waiting in a deck.
type QueueCounts struct {
	Due int `db:"due" json:"due"`
	New int `db:"new" json:"new"`
}

// CountQueue counts due and never-reviewed cards, excluding familiar words.
// Pass uuid.Nil as deckID to count across every deck.
func (db *DB) CountQueue(deckID uuid.UUID, now time.Time) (QueueCounts, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN c.state != 0 AND c.due <= ? THEN 1 ELSE 0 END), 0) AS due,
			COALESCE(SUM(CASE WHEN c.state = 0 THEN 1 ELSE 0 END), 0) AS "new"
		FROM cards c
		JOIN words w ON w.id = c.word_id
		WHERE w.familiar = 0`
	args := []any{utc(now)}

	if deckID != uuid.Nil {
		query += ` AND c.deck_id = ?`
		args = append(args, deckID)
	}

	var counts QueueCounts
	if err := db.conn.Get(&counts, query, args...); err != nil {
		return QueueCounts{}, fmt.Errorf("failed to count queue: %w", err)
	}
	return counts, nil
}

// CountCardsByState tallies cards per scheduling state, excluding familiar
// words. Pass uuid.Nil as deckID to count across every deck.
func (db *DB) CountCardsByState(deckID uuid.UUID) (map[fsrs.State]int, error) {
	query := `
		SELECT c.state AS state, COUNT(*) AS n
		FROM cards c
		JOIN words w ON w.id = c.word_id
		WHERE w.familiar = 0`
	args := []any{}

	if deckID != uuid.Nil {
		query += ` AND c.deck_id = ?`
		args = append(args, deckID)
	}
	query += ` GROUP BY c.state`

	rows, err := db.conn.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[fsrs.State]int)
	for rows.Next() {
		var state, n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan state count row: %w", err)
		}
		counts[fsrs.State(state)] = n
	}
	return counts, rows.Err()
}
