package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrRetriesExhausted = errors.New("commit retries exhausted")
	ErrInterrupted      = errors.New("commit retries interrupted")
	ErrShutdown         = errors.New("outbox shutting down")
)
