package elo

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrUnratedOutcome = errors.New("outcome carries no rating signal")
)
