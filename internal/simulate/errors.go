package simulate

import "errors"

// Sentinel errors for simulation runs.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrNoRankings    = errors.New("no rankings to verify")
)
