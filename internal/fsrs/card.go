// Package fsrs implements the FSRS spaced-repetition memory model: per-card
// stability/difficulty tracking and the rating-driven state machine that
// decides when a card is next due.
package fsrs

import (
	"time"

	"github.com/google/uuid"
)

// Card is the unit being scheduled. It is a plain value: scheduling never
// mutates a card in place, it returns an updated copy.
type Card struct {
	ID            uuid.UUID `json:"id"`
	Due           time.Time `json:"due"`
	State         State     `json:"state"`
	Stability     float64   `json:"stability"`  // modeled memory strength, days
	Difficulty    float64   `json:"difficulty"` // intrinsic hardness, clamped to configured bounds
	ElapsedDays   float64   `json:"elapsedDays"`
	ScheduledDays float64   `json:"scheduledDays"`
	Reps          int       `json:"reps"`   // successful (non-Again) reviews
	Lapses        int       `json:"lapses"` // Review-state failures

	// LastReview is nil until the first review; ElapsedDays falls back to
	// CreatedAt for that first interval.
	LastReview *time.Time `json:"lastReview,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// NewCard returns a never-reviewed card in the New state, due immediately.
func NewCard(id uuid.UUID, now time.Time) Card {
	return Card{
		ID:        id,
		Due:       now,
		State:     New,
		CreatedAt: now,
	}
}

// clone returns a copy with its own LastReview pointer.
func (c Card) clone() Card {
	out := c
	if c.LastReview != nil {
		v := *c.LastReview
		out.LastReview = &v
	}
	return out
}
