package fsrs

import (
	"math"
	"time"
)

// retrievability estimates the probability of recalling a card after
// elapsedDays, given its stability: R = e^(-t / (9 * S)).
// At t = 0 it is 1; at t = 9S it has decayed to 1/e.
func (p Parameters) retrievability(elapsedDays, stability float64) float64 {
	return math.Exp(-elapsedDays / (9 * stability))
}

// initialStability returns the first-review stability for a rating.
func (p Parameters) initialStability(r Rating) float64 {
	return p.clampStability(p.InitialStability[r-1])
}

// initialDifficulty returns the first-review difficulty for a rating.
func (p Parameters) initialDifficulty(r Rating) float64 {
	return p.clampDifficulty(p.InitialDifficulty[r-1])
}

// nextDifficulty shifts difficulty by the rating's distance from Good and
// clamps the result: D' = clamp(D - delta * (rating - Good)).
// Again raises difficulty by two deltas, Easy lowers it by one.
func (p Parameters) nextDifficulty(d float64, r Rating) float64 {
	return p.clampDifficulty(d - p.DifficultyDelta*float64(r-Good))
}

// recallStability grows stability after a successful review:
//
//	S' = S * (1 + e^g * (11 - D) * S^(-decay) * (e^((1-R)*gain) - 1) * penalty * bonus)
//
// The (e^((1-R)*gain) - 1) term is the heart of spaced repetition: recall
// at low retrievability (almost forgotten) earns a much larger increase
// than recall right after the previous review. At R = 1 the term is zero
// and stability is unchanged.
func (p Parameters) recallStability(d, s, r float64, rating Rating) float64 {
	growth := math.Exp(p.RecallGrowth) *
		(11 - d) *
		math.Pow(s, -p.GrowthStabilityDecay) *
		(math.Exp((1-r)*p.GrowthRetrievabilityGain) - 1)
	switch rating {
	case Hard:
		growth *= p.HardPenalty
	case Easy:
		growth *= p.EasyBonus
	}
	return p.clampStability(s * (1 + growth))
}

// lapseStability shrinks stability after a forgotten Review card:
//
//	S' = min(S, scale * D^(-decay) * ((S+1)^gain - 1) * e^((1-R)*rGain))
//
// The min keeps a lapse from ever increasing stability; the clamp keeps it
// strictly positive.
func (p Parameters) lapseStability(d, s, r float64) float64 {
	shrunk := p.LapseScale *
		math.Pow(d, -p.LapseDifficultyDecay) *
		(math.Pow(s+1, p.LapseStabilityGain) - 1) *
		math.Exp((1-r)*p.LapseRetrievabilityGain)
	return p.clampStability(math.Min(shrunk, s))
}

// nextIntervalDays inverts the retrievability curve at the desired
// retention: the interval after which recall probability drops to the
// target, I = 9 * S * ln(1/retention), rounded and clamped to
// [1, MaximumInterval] whole days.
func (p Parameters) nextIntervalDays(stability float64) int {
	interval := 9 * stability * math.Log(1/p.DesiredRetention)
	days := int(math.Round(interval))
	if days < 1 {
		days = 1
	}
	if days > p.MaximumInterval {
		days = p.MaximumInterval
	}
	return days
}

// clampStability floors stability at MinStability and swallows any
// non-finite value a formula could produce at extreme inputs. Clock skew
// and float overflow are expected operating conditions, not panics.
func (p Parameters) clampStability(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s < p.MinStability {
		return p.MinStability
	}
	return s
}

// clampDifficulty bounds difficulty to [MinDifficulty, MaxDifficulty].
func (p Parameters) clampDifficulty(d float64) float64 {
	if d < p.MinDifficulty {
		return p.MinDifficulty
	}
	if d > p.MaxDifficulty {
		return p.MaxDifficulty
	}
	return d
}

// hardStep is the interval served when a Learning/Relearning card is rated
// Hard: the midpoint of the first two steps, or 1.5x a lone step.
func hardStep(steps []time.Duration) time.Duration {
	if len(steps) >= 2 {
		return (steps[0] + steps[1]) / 2
	}
	return time.Duration(float64(steps[0]) * 1.5)
}

func daysToDuration(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
