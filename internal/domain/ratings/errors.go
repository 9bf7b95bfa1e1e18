package ratings

import "errors"

// Sentinel kinds for rating store errors.
var (
	ErrDuplicateID = errors.New("candidate already seeded")
	ErrUnknownID   = errors.New("unknown candidate")
)
