package fsrs

import (
	"time"

	"github.com/google/uuid"
)

// ReviewLog is the immutable record of one review event. It snapshots the
// card as it was before the transition, plus the rating, the review
// timestamp, and where the card ended up. Logs are append-only history;
// nothing in this package (or anywhere else) updates one after the fact.
type ReviewLog struct {
	CardID      uuid.UUID `json:"cardId"`
	Rating      Rating    `json:"rating"`
	State       State     `json:"state"`      // state before the review
	Due         time.Time `json:"due"`        // due date before the review
	Stability   float64   `json:"stability"`  // stability before the review
	Difficulty  float64   `json:"difficulty"` // difficulty before the review
	ElapsedDays float64   `json:"elapsedDays"`
	Review      time.Time `json:"review"` // when the review happened
	NewState    State     `json:"newState"`
	NewDue      time.Time `json:"newDue"`
}
