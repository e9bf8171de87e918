package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
)

type reviewLogRow struct {
	ID          int64     `db:"id"`
	CardID      uuid.UUID `db:"card_id"`
	Rating      int       `db:"rating"`
	State       int       `db:"state"`
	Due         time.Time `db:"due"`
	Stability   float64   `db:"stability"`
	Difficulty  float64   `db:"difficulty"`
	ElapsedDays float64   `db:"elapsed_days"`
	Review      time.Time `db:"review"`
	NewState    int       `db:"new_state"`
	NewDue      time.Time `db:"new_due"`
}

func (r reviewLogRow) toDomain() fsrs.ReviewLog {
	return fsrs.ReviewLog{
		CardID:      r.CardID,
		Rating:      fsrs.Rating(r.Rating),
		State:       fsrs.State(r.State),
		Due:         r.Due,
		Stability:   r.Stability,
		Difficulty:  r.Difficulty,
		ElapsedDays: r.ElapsedDays,
		Review:      r.Review,
		NewState:    fsrs.State(r.NewState),
		NewDue:      r.NewDue,
	}
}

const reviewLogColumns = `id, card_id, rating, state, due, stability, difficulty, elapsed_days, review, new_state, new_due`

func appendReviewLogTx(tx *sqlx.Tx, log fsrs.ReviewLog) error {
	_, err := tx.Exec(`
		INSERT INTO review_logs (card_id, rating, state, due, stability, difficulty, elapsed_days, review, new_state, new_due)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		log.CardID,
		int(log.Rating),
		int(log.State),
		utc(log.Due),
		log.Stability,
		log.Difficulty,
		log.ElapsedDays,
		utc(log.Review),
		int(log.NewState),
		utc(log.NewDue),
	)
	return err
}

// CommitReview persists the outcome of a graded review: the card's new
// scheduling state and the append-only log entry, in one transaction.
func (db *DB) CommitReview(card fsrs.Card, log fsrs.ReviewLog) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin review transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updateCardTx(tx, card); err != nil {
		return fmt.Errorf("failed to update card %s: %w", card.ID, err)
	}
	if err := appendReviewLogTx(tx, log); err != nil {
		return fmt.Errorf("failed to append review log for card %s: %w", card.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review transaction: %w", err)
	}
	return nil
}

// ListLogsByCard retrieves a card's full review history, oldest first.
func (db *DB) ListLogsByCard(cardID uuid.UUID) ([]fsrs.ReviewLog, error) {
	var rows []reviewLogRow
	if err := db.conn.Select(&rows, `
		SELECT `+reviewLogColumns+` FROM review_logs WHERE card_id = ? ORDER BY review, id
	`, cardID); err != nil {
		return nil, fmt.Errorf("failed to list logs for card %s: %w", cardID, err)
	}

	logs := make([]fsrs.ReviewLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toDomain())
	}
	return logs, nil
}

// ListLogsSince retrieves all review logs recorded at or after the given
// time, oldest first.
func (db *DB) ListLogsSince(since time.Time) ([]fsrs.ReviewLog, error) {
	var rows []reviewLogRow
	if err := db.conn.Select(&rows, `
		SELECT `+reviewLogColumns+` FROM review_logs WHERE review >= ? ORDER BY review, id
	`, utc(since)); err != nil {
		return nil, fmt.Errorf("failed to list logs since %s: %w", since, err)
	}

	logs := make([]fsrs.ReviewLog, 0, len(rows))
	for _, r := range rows {
		logs = append(logs, r.toDomain())
	}
	return logs, nil
}

// CountIntroducedSince counts cards that received their first review at or
// after the given time, which is how the daily new-card allowance is spent.
func (db *DB) CountIntroducedSince(since time.Time) (int, error) {
	var n int
	if err := db.conn.Get(&n, `
		SELECT COUNT(*) FROM review_logs WHERE state = 0 AND review >= ?
	`, utc(since)); err != nil {
		return 0, fmt.Errorf("failed to count introduced cards: %w", err)
	}
	return n, nil
}
