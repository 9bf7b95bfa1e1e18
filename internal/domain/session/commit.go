package session

import (
	"context"

	"github.com/okian/duel/internal/domain/model"
)

// BatchApplier writes a commit batch to persisted storage. Callers should
// apply the batch atomically; entries set ratings by persisted id, so
// resending an unchanged batch is safe.
type BatchApplier interface {
	ApplyRatingBatch(ctx context.Context, updates []model.RatingUpdate) error
}

// Submit hands c to the applier as one batch. An empty commit performs no
// I/O. On failure it returns a *CommitFailure carrying c unchanged; it never
// retries.
func Submit(ctx context.Context, a BatchApplier, c model.Commit) error {
	if c.Empty() {
		return nil
	}
	if err := a.ApplyRatingBatch(ctx, c.Updates); err != nil {
		return &CommitFailure{Commit: c, Err: err}
	}
	return nil
}
