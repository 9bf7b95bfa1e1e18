package session

import (
	"errors"
	"fmt"

	"github.com/okian/duel/internal/domain/model"
)

// Sentinel kinds for session errors.
var (
	ErrStalePair        = errors.New("stale pair")
	ErrSessionEnded     = errors.New("session ended")
	ErrSessionExhausted = errors.New("session exhausted")
	ErrPromotionFailed  = errors.New("challenger promotion failed")
	ErrCommitFailed     = errors.New("commit failed")
	ErrMissingCreator   = errors.New("record creator required for challengers")
	ErrNilPool          = errors.New("nil pool")
)

// CommitFailure reports that the rating batch was not applied. It carries the
// unchanged commit so the caller can retry or park it.
type CommitFailure struct {
	Commit model.Commit
	Err    error
}

func (e *CommitFailure) Error() string {
	return fmt.Sprintf("commit of session %s failed (%d updates): %v", e.Commit.SessionID, len(e.Commit.Updates), e.Err)
}

// Unwrap returns the collaborator's error.
func (e *CommitFailure) Unwrap() error {
	return e.Err
}

// Is matches ErrCommitFailed.
func (e *CommitFailure) Is(target error) bool {
	return target == ErrCommitFailed
}
