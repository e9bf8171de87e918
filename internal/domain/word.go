package domain

import (
	"time"

	"github.com/google/uuid"
)

// Deck groups vocabulary words that are studied together.
type Deck struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Word is a vocabulary item inside a deck. The enrichment fields
// (phonetic, definition, translation, example, mnemonic) start out with
// whatever the source provided and are filled in by the AI enrichment
// service later. Hash fingerprints the content for deduplication.
type Word struct {
	ID          uuid.UUID  `json:"id"`
	DeckID      uuid.UUID  `json:"deckId"`
	Term        string     `json:"term"`
	Phonetic    string     `json:"phonetic,omitempty"`
	Definition  string     `json:"definition,omitempty"`
	Translation string     `json:"translation,omitempty"`
	Example     string     `json:"example,omitempty"`
	Mnemonic    string     `json:"mnemonic,omitempty"`
	Hash        string     `json:"hash"`
	Familiar    bool       `json:"familiar"`
	SourceID    *int64     `json:"sourceId,omitempty"` // nil for manually added words
	EnrichedAt  *time.Time `json:"enrichedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// WordEntry is a single parsed entry from a word-list file or import row,
// before it is persisted as a Word.
type WordEntry struct {
	Term        string
	Phonetic    string
	Definition  string
	Translation string
	Example     string
	Mnemonic    string
}

// Enrichment is the structured content the AI service produces for a word.
type Enrichment struct {
	Phonetic    string `json:"phonetic"`
	Definition  string `json:"definition"`
	Translation string `json:"translation"`
	Example     string `json:"example"`
	Mnemonic    string `json:"mnemonic"`
}
