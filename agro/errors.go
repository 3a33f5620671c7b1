package agro

import "errors"

var (
	// ErrInsufficientData means a stage had fewer valid observations than
	// it needs (2 for interpolation). The field is reported as "cannot
	// predict", never as a zero yield.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrNoOverlap means the daily fAPAR and radiation series share no
	// dates, so no day could be simulated.
	ErrNoOverlap = errors.New("no date overlap between fapar and radiation series")
)
