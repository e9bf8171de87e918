// Package session drives a study session: it picks the next card to show,
// grades answers through the scheduler and persists the outcome.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/storage"
)

// ErrNoCards is returned when neither a due card nor a new card within the
// daily allowance is available. Check with errors.Is.
var ErrNoCards = errors.New("session: no cards to study")

// Store is the slice of persistence a session needs.
type Store interface {
	DueCards(deckID uuid.UUID, now time.Time, limit int) ([]storage.CardWithWord, error)
	NewCards(deckID uuid.UUID, limit int) ([]storage.CardWithWord, error)
	CountIntroducedSince(since time.Time) (int, error)
	GetCard(id uuid.UUID) (fsrs.Card, error)
	GetCardWithWord(id uuid.UUID) (storage.CardWithWord, error)
	CommitReview(card fsrs.Card, log fsrs.ReviewLog) error
}

// Service sequences reviews. Due cards always come before new cards, and
// new cards stop once the daily allowance is spent.
type Service struct {
	store        Store
	scheduler    *fsrs.Scheduler
	logger       *slog.Logger
	newPerDay    int
	sessionLimit int
}

// NewService creates a session service. newPerDay caps how many cards leave
// the New state per calendar day; sessionLimit caps the queue size.
func NewService(store Store, scheduler *fsrs.Scheduler, logger *slog.Logger, newPerDay, sessionLimit int) *Service {
	return &Service{
		store:        store,
		scheduler:    scheduler,
		logger:       logger,
		newPerDay:    newPerDay,
		sessionLimit: sessionLimit,
	}
}

// NextCard returns the next card to study in a deck, or ErrNoCards when the
// session is done. Pass uuid.Nil as deckID to draw from every deck.
func (s *Service) NextCard(deckID uuid.UUID, now time.Time) (storage.CardWithWord, error) {
	due, err := s.store.DueCards(deckID, now, 1)
	if err != nil {
		return storage.CardWithWord{}, err
	}
	if len(due) > 0 {
		return due[0], nil
	}

	allowance, err := s.newAllowance(now)
	if err != nil {
		return storage.CardWithWord{}, err
	}
	if allowance > 0 {
		fresh, err := s.store.NewCards(deckID, 1)
		if err != nil {
			return storage.CardWithWord{}, err
		}
		if len(fresh) > 0 {
			return fresh[0], nil
		}
	}

	return storage.CardWithWord{}, ErrNoCards
}

// Queue returns the upcoming session, due cards first and then new cards up
// to the daily allowance, capped at the session limit.
func (s *Service) Queue(deckID uuid.UUID, now time.Time) ([]storage.CardWithWord, error) {
	queue, err := s.store.DueCards(deckID, now, s.sessionLimit)
	if err != nil {
		return nil, err
	}

	room := s.sessionLimit - len(queue)
	if room <= 0 {
		return queue, nil
	}

	allowance, err := s.newAllowance(now)
	if err != nil {
		return nil, err
	}
	if allowance < room {
		room = allowance
	}
	if room <= 0 {
		return queue, nil
	}

	fresh, err := s.store.NewCards(deckID, room)
	if err != nil {
		return nil, err
	}
	return append(queue, fresh...), nil
}

// SubmitReview grades a card. The rating arrives as an untrusted integer;
// fsrs.ErrInvalidRating reports a bad one. The updated card and the log
// entry are persisted together before being returned.
func (s *Service) SubmitReview(cardID uuid.UUID, ratingValue int, now time.Time) (fsrs.Card, fsrs.ReviewLog, error) {
	rating, err := fsrs.ParseRating(ratingValue)
	if err != nil {
		return fsrs.Card{}, fsrs.ReviewLog{}, fmt.Errorf("rating %d: %w", ratingValue, err)
	}

	card, err := s.store.GetCard(cardID)
	if err != nil {
		return fsrs.Card{}, fsrs.ReviewLog{}, err
	}

	updated, log := s.scheduler.ScheduleReview(card, rating, now)
	if err := s.store.CommitReview(updated, log); err != nil {
		return fsrs.Card{}, fsrs.ReviewLog{}, err
	}

	s.logger.Info("review graded",
		"card", cardID,
		"rating", rating.String(),
		"state", updated.State.String(),
		"due", updated.Due,
	)
	return updated, log, nil
}

// Previews shows what each rating would do to a card without persisting
// anything.
func (s *Service) Previews(cardID uuid.UUID, now time.Time) (map[fsrs.Rating]fsrs.Card, error) {
	card, err := s.store.GetCard(cardID)
	if err != nil {
		return nil, err
	}
	return s.scheduler.ReviewPreviews(card, now), nil
}

func (s *Service) newAllowance(now time.Time) (int, error) {
	introduced, err := s.store.CountIntroducedSince(startOfDay(now))
	if err != nil {
		return 0, err
	}
	allowance := s.newPerDay - introduced
	if allowance < 0 {
		allowance = 0
	}
	return allowance, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
