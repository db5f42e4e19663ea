package index

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrDebounced is returned when a run is suppressed by the debounce
	// window.
	ErrDebounced = errors.New("drain run suppressed by debounce window")
)
