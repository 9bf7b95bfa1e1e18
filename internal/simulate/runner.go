package simulate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/duel/internal/adapters/repository"
	service "github.com/okian/duel/internal/app"
	"github.com/okian/duel/internal/domain/elo"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/session"
	"github.com/okian/duel/pkg/logger"
)

// Ranker is the part of the ranking service a simulation drives.
type Ranker interface {
	StartSession(ctx context.Context, contextID string) (string, error)
	Next(ctx context.Context, id string) (model.Pair, error)
	Current(ctx context.Context, id string) (model.Candidate, model.Candidate, error)
	Vote(ctx context.Context, id string, pair model.Pair, winnerID string) (model.Round, error)
	Skip(ctx context.Context, id string, pair model.Pair) (model.Round, error)
	Status(ctx context.Context, id string) (service.Status, error)
	EndSession(ctx context.Context, id string) (model.Commit, error)
	Leaderboard(ctx context.Context, contextID string, n int) ([]repository.Entry, error)
}

var _ Ranker = (*service.Service)(nil)

// Runner plays simulated sessions against a ranking service.
type Runner struct {
	ranker Ranker
	store  Seeder
	cfg    Config
	rating float64
	logger logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithSeedRating sets the rating given to seeded established items.
func WithSeedRating(rating float64) Option {
	return func(r *Runner) {
		if rating > 0 {
			r.rating = rating
		}
	}
}

// NewRunner creates a runner that seeds store and ranks through ranker.
func NewRunner(ranker Ranker, store Seeder, cfg Config, opts ...Option) *Runner {
	r := &Runner{
		ranker: ranker,
		store:  store,
		cfg:    cfg,
		rating: elo.DefaultRating,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) validate() error {
	switch {
	case r.cfg.ContextID == "":
		return fmt.Errorf("%w: empty context id", ErrInvalidConfig)
	case r.cfg.Items < 0 || r.cfg.Challengers < 0:
		return fmt.Errorf("%w: negative item count", ErrInvalidConfig)
	case r.cfg.Items+r.cfg.Challengers < 2:
		return fmt.Errorf("%w: need at least two items", ErrInvalidConfig)
	case r.cfg.Sessions < 1:
		return fmt.Errorf("%w: sessions must be positive", ErrInvalidConfig)
	case r.cfg.Rounds < 0:
		return fmt.Errorf("%w: rounds must not be negative", ErrInvalidConfig)
	case r.cfg.Noise < 0:
		return fmt.Errorf("%w: noise must not be negative", ErrInvalidConfig)
	case r.cfg.SkipRate < 0 || r.cfg.SkipRate >= 1:
		return fmt.Errorf("%w: skip rate must be in [0,1)", ErrInvalidConfig)
	}
	return nil
}

// Run seeds the collection, plays every session and verifies the result.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	stats := &Stats{StartTime: time.Now()}

	r.logger.Info(ctx, "starting ranking simulation",
		logger.String("context", r.cfg.ContextID),
		logger.Int("items", r.cfg.Items),
		logger.Int("challengers", r.cfg.Challengers),
		logger.Int("sessions", r.cfg.Sessions),
		logger.Int("rounds", r.cfg.Rounds),
		logger.Float64("noise", r.cfg.Noise),
	)

	// Step 1: Seed the collection
	truth, err := Seed(ctx, r.store, r.cfg, r.rating, r.logger)
	if err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}

	// Step 2: Play sessions
	voter := NewVoter(truth, r.cfg.Noise, r.cfg.SkipRate, r.cfg.Seed)
	for i := range r.cfg.Sessions {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := r.play(ctx, voter, stats); err != nil {
			return stats, fmt.Errorf("session %d: %w", i+1, err)
		}
	}

	// Step 3: Verify the committed order
	board, err := r.ranker.Leaderboard(ctx, r.cfg.ContextID, r.cfg.Items+r.cfg.Challengers)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verify(board, truth, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	r.report(ctx, board, stats)
	return stats, nil
}

// play runs one session from start to commit.
func (r *Runner) play(ctx context.Context, voter *Voter, stats *Stats) error {
	id, err := r.ranker.StartSession(ctx, r.cfg.ContextID)
	if err != nil {
		return err
	}
	for played := 0; r.cfg.Rounds == 0 || played < r.cfg.Rounds; played++ {
		pair, err := r.ranker.Next(ctx, id)
		if errors.Is(err, session.ErrSessionExhausted) {
			break
		}
		if err != nil {
			return err
		}
		a, b, err := r.ranker.Current(ctx, id)
		if err != nil {
			return err
		}
		winner, ok := voter.Choose(a, b)
		if !ok {
			if _, err := r.ranker.Skip(ctx, id, pair); err != nil {
				return err
			}
			stats.RoundsSkipped++
			continue
		}
		round, err := r.ranker.Vote(ctx, id, pair, winner)
		if err != nil {
			return err
		}
		stats.RoundsVoted++
		if r.cfg.Verbose {
			r.logger.Info(ctx, "round voted",
				logger.String("session", id),
				logger.Int("round", round.Number),
				logger.String("winner", winner),
				logger.Float64("rating", round.After[winner]),
			)
		}
	}

	st, err := r.ranker.Status(ctx, id)
	if err != nil {
		return err
	}
	stats.Promotions += st.Promotions

	commit, err := r.ranker.EndSession(ctx, id)
	stats.SessionsPlayed++
	switch {
	case errors.Is(err, session.ErrCommitFailed):
		stats.CommitsFailed++
		r.logger.Warn(ctx, "simulated session commit failed", logger.String("session", id), logger.Error(err))
	case err != nil:
		return err
	case commit.Empty():
		stats.CommitsEmpty++
	default:
		stats.CommitsApplied++
	}
	return nil
}

// report logs the final statistics and the top of the leaderboard.
func (r *Runner) report(ctx context.Context, board []repository.Entry, stats *Stats) {
	top := r.cfg.TopN
	if top <= 0 || top > len(board) {
		top = len(board)
	}
	for _, e := range board[:top] {
		r.logger.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("name", e.Name),
			logger.Float64("rating", e.Rating),
		)
	}
	r.logger.Info(ctx, "final statistics",
		logger.Int("sessionsPlayed", stats.SessionsPlayed),
		logger.Int("roundsVoted", stats.RoundsVoted),
		logger.Int("roundsSkipped", stats.RoundsSkipped),
		logger.Int("promotions", stats.Promotions),
		logger.Int("commitsApplied", stats.CommitsApplied),
		logger.Int("commitsEmpty", stats.CommitsEmpty),
		logger.Int("commitsFailed", stats.CommitsFailed),
		logger.Int("leaderboardSize", stats.LeaderboardSize),
		logger.Float64("agreement", stats.Agreement),
		logger.Bool("topMatches", stats.TopMatches),
		logger.Duration("duration", stats.Duration),
	)
}
