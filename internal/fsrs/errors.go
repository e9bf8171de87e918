package fsrs

import "errors"

// Sentinel errors for the fsrs package.
// Check with errors.Is: errors.Is(err, fsrs.ErrInvalidRating)
var (
	ErrInvalidRating     = errors.New("fsrs: invalid rating")
	ErrInvalidParameters = errors.New("fsrs: invalid parameters")
)
