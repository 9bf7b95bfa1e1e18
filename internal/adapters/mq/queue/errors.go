package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull   = errors.New("commit queue full")
	ErrQueueClosed = errors.New("commit queue closed")
)
