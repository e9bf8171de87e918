package fsrs

import (
	"fmt"
	"time"
)

// Parameters is the constant table driving the memory model. Callers swap
// the whole table at scheduler construction (per-deck tuning, optimizer
// output); individual fields are never changed per call.
//
// The four-entry tables are indexed by Rating (Again, Hard, Good, Easy).
type Parameters struct {
	InitialStability  [4]float64 // first-review stability, days
	InitialDifficulty [4]float64 // first-review difficulty

	DifficultyDelta float64 // per-review difficulty shift per rating step away from Good

	RecallGrowth             float64 // growth exponent for successful recall
	GrowthStabilityDecay     float64 // damping: high stability grows proportionally less
	GrowthRetrievabilityGain float64 // reward for recalling a nearly forgotten card
	HardPenalty              float64 // growth multiplier when rated Hard
	EasyBonus                float64 // growth multiplier when rated Easy

	LapseScale              float64 // base scale of post-lapse stability
	LapseDifficultyDecay    float64 // harder cards keep less stability through a lapse
	LapseStabilityGain      float64 // how much prior stability survives a lapse
	LapseRetrievabilityGain float64 // lapsing early retains more than lapsing late

	DesiredRetention float64 // recall probability targeted when spacing reviews
	MaximumInterval  int     // interval cap, days

	LearningSteps   []time.Duration // short steps before first graduation
	RelearningSteps []time.Duration // short steps after a lapse

	MinStability  float64 // stability floor, keeps the model strictly positive
	MinDifficulty float64
	MaxDifficulty float64
}

// DefaultParameters returns the stock FSRS parameter table. The values are
// the published defaults; serious users replace them with a table fitted to
// their own review history.
func DefaultParameters() Parameters {
	return Parameters{
		InitialStability:  [4]float64{0.4, 0.6, 2.4, 5.8},
		InitialDifficulty: [4]float64{8.81, 6.87, 4.93, 2.99},

		DifficultyDelta: 0.86,

		RecallGrowth:             1.49,
		GrowthStabilityDecay:     0.14,
		GrowthRetrievabilityGain: 0.94,
		HardPenalty:              0.29,
		EasyBonus:                2.61,

		LapseScale:              2.18,
		LapseDifficultyDecay:    0.05,
		LapseStabilityGain:      0.34,
		LapseRetrievabilityGain: 1.26,

		DesiredRetention: 0.9,
		MaximumInterval:  36500,

		LearningSteps:   []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps: []time.Duration{10 * time.Minute},

		MinStability:  0.001,
		MinDifficulty: 1,
		MaxDifficulty: 10,
	}
}

// validate reports the first structural problem with the table.
func (p Parameters) validate() error {
	if p.DesiredRetention <= 0 || p.DesiredRetention >= 1 {
		return fmt.Errorf("%w: desired retention %v outside (0, 1)", ErrInvalidParameters, p.DesiredRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("%w: maximum interval %d must be at least 1 day", ErrInvalidParameters, p.MaximumInterval)
	}
	for i, s := range p.InitialStability {
		if s <= 0 {
			return fmt.Errorf("%w: initial stability for %s must be positive, got %v", ErrInvalidParameters, Rating(i+1), s)
		}
	}
	for i, d := range p.InitialDifficulty {
		if d <= 0 {
			return fmt.Errorf("%w: initial difficulty for %s must be positive, got %v", ErrInvalidParameters, Rating(i+1), d)
		}
	}
	if p.MinStability <= 0 {
		return fmt.Errorf("%w: stability floor %v must be positive", ErrInvalidParameters, p.MinStability)
	}
	if p.MinDifficulty <= 0 || p.MinDifficulty >= p.MaxDifficulty {
		return fmt.Errorf("%w: difficulty bounds [%v, %v]", ErrInvalidParameters, p.MinDifficulty, p.MaxDifficulty)
	}
	if p.HardPenalty <= 0 || p.HardPenalty > 1 {
		return fmt.Errorf("%w: hard penalty %v outside (0, 1]", ErrInvalidParameters, p.HardPenalty)
	}
	if p.EasyBonus < 1 {
		return fmt.Errorf("%w: easy bonus %v must be at least 1", ErrInvalidParameters, p.EasyBonus)
	}
	if p.LapseScale <= 0 {
		return fmt.Errorf("%w: lapse scale %v must be positive", ErrInvalidParameters, p.LapseScale)
	}
	if len(p.LearningSteps) == 0 {
		return fmt.Errorf("%w: at least one learning step required", ErrInvalidParameters)
	}
	if len(p.RelearningSteps) == 0 {
		return fmt.Errorf("%w: at least one relearning step required", ErrInvalidParameters)
	}
	for _, step := range p.LearningSteps {
		if step <= 0 {
			return fmt.Errorf("%w: learning step %v must be positive", ErrInvalidParameters, step)
		}
	}
	for _, step := range p.RelearningSteps {
		if step <= 0 {
			return fmt.Errorf("%w: relearning step %v must be positive", ErrInvalidParameters, step)
		}
	}
	return nil
}
