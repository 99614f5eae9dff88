package profile

import (
	"errors"
	"fmt"
)

// Errors returned by the profile engine.
var (
	// ErrInvalidParameter is returned when a parameter makes every window
	// degenerate (bins = 0, window_size = 0) or the input columns disagree in length.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrLengthMismatch is returned when price and volume differ in length.
	// It matches ErrInvalidParameter under errors.Is.
	ErrLengthMismatch = fmt.Errorf("%w: length mismatch", ErrInvalidParameter)

	// ErrEmptyWindow is returned when a window slice could not be formed.
	// Valid input never produces it; seeing it means an indexing defect.
	ErrEmptyWindow = errors.New("empty window")
)
