package affect

import "errors"

var (
	// ErrInvalidSignal is returned for malformed, non-finite or out-of-range inputs.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrUnknownTag is returned when a tag string is not in the closed set.
	// The accompanying Tag is always TagNeutral.
	ErrUnknownTag = errors.New("unknown emotion tag")

	// ErrUnknownMovement is returned when a movement string is not recognised.
	ErrUnknownMovement = errors.New("unknown movement")
)
