package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrUnknownRecord   = errors.New("batch references unknown record")
	ErrDuplicateRecord = errors.New("record already exists")
	ErrInvalidLimit    = errors.New("invalid leaderboard limit")
	ErrInvalidRecord   = errors.New("invalid record")
)
