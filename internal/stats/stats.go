// Package stats aggregates review history into dashboard numbers.
package stats

import (
	"time"

	"github.com/lijiahao771202-dev/Englishoo-sub002/internal/fsrs"
)

// Summary describes recent study activity. SuccessRate is the share of
// reviews that were not rated Again, over whatever window of logs was
// supplied.
type Summary struct {
	ReviewsToday int                 `json:"reviewsToday"`
	SuccessRate  float64             `json:"successRate"`
	StreakDays   int                 `json:"streakDays"`
	RatingCounts map[fsrs.Rating]int `json:"ratingCounts"`
}

// Compute summarises the given logs. Days are bucketed in now's location,
// so "today" follows the server clock.
func Compute(logs []fsrs.ReviewLog, now time.Time) Summary {
	summary := Summary{RatingCounts: make(map[fsrs.Rating]int)}

	startOfToday := startOfDay(now)
	days := make(map[time.Time]bool)
	var succeeded int

	for _, log := range logs {
		summary.RatingCounts[log.Rating]++
		if log.Rating != fsrs.Again {
			succeeded++
		}

		reviewed := log.Review.In(now.Location())
		if !reviewed.Before(startOfToday) {
			summary.ReviewsToday++
		}
		days[startOfDay(reviewed)] = true
	}

	if len(logs) > 0 {
		summary.SuccessRate = float64(succeeded) / float64(len(logs))
	}
	summary.StreakDays = streak(days, startOfToday)

	return summary
}

// streak counts consecutive study days ending today. A streak is still
// alive if today has no reviews yet but yesterday does.
func streak(days map[time.Time]bool, today time.Time) int {
	anchor := today
	if !days[anchor] {
		anchor = today.AddDate(0, 0, -1)
		if !days[anchor] {
			return 0
		}
	}

	n := 0
	for days[anchor] {
		n++
		anchor = anchor.AddDate(0, 0, -1)
	}
	return n
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
