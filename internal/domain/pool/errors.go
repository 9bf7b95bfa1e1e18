package pool

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrInsufficientCandidates = errors.New("insufficient candidates")
	ErrInvalidCandidate       = errors.New("invalid candidate")
	ErrUnknownCandidate       = errors.New("unknown candidate")
)
