package fsrs

import (
	"fmt"
	"math"
	"time"
)

// Scheduler computes review transitions. It is safe for concurrent use:
// every method is a pure function of its inputs and the immutable
// parameter table, and nothing is mutated in place.
type Scheduler struct {
	params Parameters
}

// NewScheduler builds a Scheduler around the given parameter table.
// The table is validated once here; ScheduleReview assumes it is sound.
// The step slices are copied, so callers cannot reach inside afterwards.
func NewScheduler(params Parameters) (*Scheduler, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	params.LearningSteps = append([]time.Duration(nil), params.LearningSteps...)
	params.RelearningSteps = append([]time.Duration(nil), params.RelearningSteps...)
	return &Scheduler{params: params}, nil
}

// Parameters returns a copy of the scheduler's parameter table.
func (s *Scheduler) Parameters() Parameters {
	p := s.params
	p.LearningSteps = append([]time.Duration(nil), p.LearningSteps...)
	p.RelearningSteps = append([]time.Duration(nil), p.RelearningSteps...)
	return p
}

// ScheduleReview applies one rating to a card at the given time and returns
// the updated card plus the log entry recording the transition. The input
// card is never modified.
//
// An invalid rating or a malformed card (unknown state, non-positive
// stability on a reviewed card) is a caller bug and panics; validate
// untrusted input with ParseRating first. Clock skew is not a bug: a review
// timestamped before the card's last review clamps elapsed time to zero.
func (s *Scheduler) ScheduleReview(card Card, rating Rating, now time.Time) (Card, ReviewLog) {
	if !rating.IsValid() {
		panic(fmt.Sprintf("fsrs: invalid rating %d", int(rating)))
	}
	if !card.State.IsValid() {
		panic(fmt.Sprintf("fsrs: card %s has invalid state %d", card.ID, int(card.State)))
	}
	if card.State != New && (card.Stability <= 0 || math.IsNaN(card.Stability)) {
		panic(fmt.Sprintf("fsrs: card %s in state %s has non-positive stability %v", card.ID, card.State, card.Stability))
	}

	c := card.clone()
	elapsed := elapsedDays(card, now)

	var interval time.Duration
	switch card.State {
	case New:
		interval = s.reviewNew(&c, rating)
	case Learning:
		interval = s.reviewStep(&c, rating, s.params.LearningSteps, true)
	case Relearning:
		interval = s.reviewStep(&c, rating, s.params.RelearningSteps, false)
	case Review:
		interval = s.reviewSettled(&c, rating, elapsed)
	}

	if rating == Again {
		if card.State == Review {
			c.Lapses++
		}
	} else {
		c.Reps++
	}

	reviewedAt := now
	c.Due = now.Add(interval)
	c.ElapsedDays = elapsed
	c.ScheduledDays = interval.Hours() / 24
	c.LastReview = &reviewedAt

	log := ReviewLog{
		CardID:      card.ID,
		Rating:      rating,
		State:       card.State,
		Due:         card.Due,
		Stability:   card.Stability,
		Difficulty:  card.Difficulty,
		ElapsedDays: elapsed,
		Review:      now,
		NewState:    c.State,
		NewDue:      c.Due,
	}
	return c, log
}

// ReviewPreviews simulates all four ratings against the same card and
// returns the would-be result for each, committing none of them. Each
// entry matches what ScheduleReview would return for that rating.
func (s *Scheduler) ReviewPreviews(card Card, now time.Time) map[Rating]Card {
	previews := make(map[Rating]Card, 4)
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		c, _ := s.ScheduleReview(card, r, now)
		previews[r] = c
	}
	return previews
}

// Retrievability estimates the probability the card can be recalled at the
// given time. Never-reviewed cards report 0.
func (s *Scheduler) Retrievability(card Card, now time.Time) float64 {
	if card.LastReview == nil || card.Stability <= 0 {
		return 0
	}
	elapsed := now.Sub(*card.LastReview).Hours() / 24
	if elapsed < 0 {
		elapsed = 0
	}
	return s.params.retrievability(elapsed, card.Stability)
}

// reviewNew initializes stability and difficulty from the rating-indexed
// tables. Easy skips the learning phase entirely; everything else enters
// Learning at a rating-dependent step.
func (s *Scheduler) reviewNew(c *Card, rating Rating) time.Duration {
	c.Stability = s.params.initialStability(rating)
	c.Difficulty = s.params.initialDifficulty(rating)

	if rating == Easy {
		c.State = Review
		return daysToDuration(s.params.nextIntervalDays(c.Stability))
	}

	c.State = Learning
	steps := s.params.LearningSteps
	switch rating {
	case Again:
		return steps[0]
	case Hard:
		return hardStep(steps)
	default: // Good: serve the last step, the next success graduates.
		return steps[len(steps)-1]
	}
}

// reviewStep handles Learning and Relearning. Again resets to the first
// step, Hard stretches it, Good and Easy graduate to Review. Cards
// graduating out of Learning get at least the initial-table stability for
// the rating; cards graduating out of Relearning keep their lapse-shrunk
// stability.
func (s *Scheduler) reviewStep(c *Card, rating Rating, steps []time.Duration, fromLearning bool) time.Duration {
	c.Difficulty = s.params.nextDifficulty(c.Difficulty, rating)

	switch rating {
	case Again:
		return steps[0]
	case Hard:
		return hardStep(steps)
	}

	if fromLearning {
		c.Stability = math.Max(c.Stability, s.params.initialStability(rating))
	}
	c.Stability = s.params.clampStability(c.Stability)
	c.State = Review
	return daysToDuration(s.params.nextIntervalDays(c.Stability))
}

// reviewSettled handles the Review state, the general case. Difficulty
// shifts first; the stability formulas then run against the updated
// difficulty and the retrievability at review time.
func (s *Scheduler) reviewSettled(c *Card, rating Rating, elapsed float64) time.Duration {
	r := s.params.retrievability(elapsed, c.Stability)
	c.Difficulty = s.params.nextDifficulty(c.Difficulty, rating)

	if rating == Again {
		c.Stability = s.params.lapseStability(c.Difficulty, c.Stability, r)
		c.State = Relearning
		return s.params.RelearningSteps[0]
	}

	c.Stability = s.params.recallStability(c.Difficulty, c.Stability, r, rating)
	return daysToDuration(s.params.nextIntervalDays(c.Stability))
}

// elapsedDays measures fractional days since the last review, falling back
// to the card's creation time for first reviews. Negative spans (clock
// skew) clamp to zero rather than leaking into the model.
func elapsedDays(card Card, now time.Time) float64 {
	anchor := card.CreatedAt
	if card.LastReview != nil {
		anchor = *card.LastReview
	}
	if anchor.IsZero() {
		return 0
	}
	days := now.Sub(anchor).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}
