// Package service runs ranking sessions against a repository.
//
// The Service owns every live session by id, builds each one from the
// collection's established candidates plus a bounded set of challengers, and
// hands the final commit to storage. A commit that storage rejects is parked
// in the outbox and retried by background workers. Ended sessions leave a
// tombstone so later calls with their id report session.ErrSessionEnded.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/duel/internal/adapters/mq/queue"
	"github.com/okian/duel/internal/adapters/mq/worker"
	"github.com/okian/duel/internal/adapters/repository"
	"github.com/okian/duel/internal/domain/elo"
	"github.com/okian/duel/internal/domain/matchmaker"
	"github.com/okian/duel/internal/domain/model"
	"github.com/okian/duel/internal/domain/pool"
	"github.com/okian/duel/internal/domain/session"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

// Status summarises a live session.
type Status struct {
	ID              string
	ContextID       string
	State           string
	RoundsVoted     int
	RoundsPresented int
	Promotions      int
	Candidates      int
}

// live guards one session; sessions are not safe for concurrent use.
type live struct {
	mu   sync.Mutex
	sess *session.Session
}

// Service implements session orchestration for the ranking engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	outbox  *queue.InMemoryQueue
	workers *worker.Pool
	halt    context.CancelFunc // cancels the outbox context after a drain

	// Configuration
	rater          elo.Rater
	defaultRating  float64
	seed           int64
	maxRounds      int
	allowRepeats   bool
	tieEpsilon     float64
	maxChallengers int
	retryAttempts  int
	retryBackoff   time.Duration
	queueSize      int
	workerCount    int

	// State
	sessions map[string]*live
	ended    map[string]struct{} // ids of sessions that were ended
	started  int64 // sessions started so far, used to derive seeds
	running  bool

	logger logger.Logger
}

// New constructs a Service over store with default configuration.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		rater:          elo.New(),
		defaultRating:  elo.DefaultRating,
		tieEpsilon:     matchmaker.DefaultTieEpsilon,
		maxChallengers: 5,
		retryAttempts:  5,
		retryBackoff:   200 * time.Millisecond,
		queueSize:      1024,
		workerCount:    1,
		sessions:       make(map[string]*live),
		ended:          make(map[string]struct{}),
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the commit outbox workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}

	s.outbox = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workers = worker.NewPool(s.workerCount, s.outbox, s.store,
		worker.WithMaxAttempts(s.retryAttempts),
		worker.WithBackoff(s.retryBackoff),
		worker.WithLogger(s.logger),
		worker.WithDeadLetter(s.deadLetter),
	)
	// The outbox runs until Stop drains it, independent of ctx.
	runCtx, halt := context.WithCancel(context.WithoutCancel(ctx))
	s.halt = halt
	s.workers.Start(runCtx)
	s.running = true

	s.logger.Info(ctx, "ranking service started",
		logger.Int("outboxWorkers", s.workerCount),
		logger.Int("outboxSize", s.queueSize),
		logger.Int("retryAttempts", s.retryAttempts),
	)
	return nil
}

// Stop drains the outbox and stops its workers. Live sessions are left as
// they are.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	err := s.workers.Shutdown(ctx)
	s.halt()
	s.logger.Info(ctx, "ranking service stopped", logger.Int("liveSessions", len(s.sessions)))
	return err
}

func (s *Service) deadLetter(ctx context.Context, j queue.Job, err error) {
	s.logger.Error(ctx, "commit batch abandoned",
		logger.String("session", j.Commit.SessionID),
		logger.String("context", j.Commit.ContextID),
		logger.Int("updates", len(j.Commit.Updates)),
		logger.Int("attempts", j.Attempts),
		logger.Error(err),
	)
}

// StartSession opens a session over contextID and returns its id.
func (s *Service) StartSession(ctx context.Context, contextID string) (string, error) {
	if s.store == nil {
		return "", ErrNoStore
	}
	established, err := s.store.LoadEstablished(ctx, contextID)
	if err != nil {
		return "", fmt.Errorf("load established candidates: %w", err)
	}
	names := make([]string, 0, len(established))
	for _, c := range established {
		names = append(names, c.Display.Name)
	}
	var challengers []model.Candidate
	if s.maxChallengers > 0 {
		challengers, err = s.store.LoadChallengers(ctx, contextID, s.maxChallengers, names)
		if err != nil {
			return "", fmt.Errorf("load challengers: %w", err)
		}
	}

	p, err := pool.New(established, challengers, pool.WithDefaultRating(s.defaultRating))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.started++
	seed := time.Now().UnixNano()
	if s.seed != 0 {
		seed = s.seed + s.started
	}
	sess, err := session.Start(p,
		session.WithContextID(contextID),
		session.WithMatchmaker(matchmaker.New(seed,
			matchmaker.WithRepeats(s.allowRepeats),
			matchmaker.WithTieEpsilon(s.tieEpsilon),
		)),
		session.WithRater(s.rater),
		session.WithRecordCreator(s.store),
		session.WithMaxRounds(s.maxRounds),
		session.WithLogger(s.logger.Named("session")),
	)
	if err != nil {
		return "", err
	}
	s.sessions[sess.ID()] = &live{sess: sess}
	metrics.RecordSessionStarted()

	s.logger.Info(ctx, "session started",
		logger.String("session", sess.ID()),
		logger.String("context", contextID),
		logger.Int("established", len(established)),
		logger.Int("challengers", len(challengers)),
	)
	return sess.ID(), nil
}

func (s *Service) lookup(id string) (*live, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.sessions[id]
	if ok {
		return l, nil
	}
	if _, ok := s.ended[id]; ok {
		return nil, fmt.Errorf("%w: %s", session.ErrSessionEnded, id)
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
}

// Next returns the pair awaiting a decision in session id.
func (s *Service) Next(_ context.Context, id string) (model.Pair, error) {
	l, err := s.lookup(id)
	if err != nil {
		return model.Pair{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	pair, err := l.sess.Next()
	if errors.Is(err, session.ErrSessionExhausted) {
		metrics.RecordExhausted()
	}
	return pair, err
}

// Current returns the candidates of the pending pair with their display data.
func (s *Service) Current(_ context.Context, id string) (model.Candidate, model.Candidate, error) {
	l, err := s.lookup(id)
	if err != nil {
		return model.Candidate{}, model.Candidate{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	pair, ok := l.sess.Current()
	if !ok {
		return model.Candidate{}, model.Candidate{}, fmt.Errorf("%w: no pair issued", session.ErrStalePair)
	}
	var a, b model.Candidate
	for _, c := range l.sess.Candidates() {
		switch c.ID {
		case pair.A:
			a = c
		case pair.B:
			b = c
		}
	}
	return a, b, nil
}

// Vote records winnerID as preferred in pair.
func (s *Service) Vote(ctx context.Context, id string, pair model.Pair, winnerID string) (model.Round, error) {
	l, err := s.lookup(id)
	if err != nil {
		return model.Round{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	before, _ := l.sess.Rating(winnerID)
	promoted := len(l.sess.Promotions())
	round, err := l.sess.Vote(ctx, pair, winnerID)
	switch {
	case errors.Is(err, session.ErrStalePair):
		metrics.RecordStaleSubmission()
		return model.Round{}, err
	case errors.Is(err, session.ErrPromotionFailed):
		metrics.RecordPromotion(false)
		metrics.RecordErrorByComponent("session", "promotion_failed")
		return model.Round{}, err
	case err != nil:
		return model.Round{}, err
	}
	if len(l.sess.Promotions()) > promoted {
		metrics.RecordPromotion(true)
	}
	metrics.RecordRound(false, round.After[winnerID]-before)
	return round, nil
}

// Skip records that no preference was given for pair.
func (s *Service) Skip(ctx context.Context, id string, pair model.Pair) (model.Round, error) {
	l, err := s.lookup(id)
	if err != nil {
		return model.Round{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	round, err := l.sess.Skip(ctx, pair)
	if errors.Is(err, session.ErrStalePair) {
		metrics.RecordStaleSubmission()
	}
	if err != nil {
		return model.Round{}, err
	}
	metrics.RecordRound(true, 0)
	return round, nil
}

// EndSession closes session id and hands its commit to storage. On failure
// the returned error is a *session.CommitFailure; the batch is also parked in
// the outbox when the service is running.
func (s *Service) EndSession(ctx context.Context, id string) (model.Commit, error) {
	l, err := s.lookup(id)
	if err != nil {
		return model.Commit{}, err
	}
	l.mu.Lock()
	commit, err := l.sess.End()
	l.mu.Unlock()
	if err != nil {
		return model.Commit{}, err
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.ended[id] = struct{}{}
	outbox := s.outbox
	running := s.running
	s.mu.Unlock()
	metrics.RecordSessionEnded()

	if commit.Empty() {
		metrics.RecordCommit(metrics.CommitEmpty, 0, 0)
		s.logger.Info(ctx, "session ended without changes", logger.String("session", id))
		return commit, nil
	}

	start := time.Now()
	err = session.Submit(ctx, s.store, commit)
	latency := float64(time.Since(start).Milliseconds())
	if err == nil {
		metrics.RecordCommit(metrics.CommitApplied, len(commit.Updates), latency)
		s.logger.Info(ctx, "session committed",
			logger.String("session", id),
			logger.Int("updates", len(commit.Updates)),
		)
		return commit, nil
	}

	metrics.RecordCommit(metrics.CommitFailed, len(commit.Updates), latency)
	s.logger.Warn(ctx, "session commit failed",
		logger.String("session", id),
		logger.Int("updates", len(commit.Updates)),
		logger.Error(err),
	)
	if running {
		job := queue.Job{Commit: commit, Attempts: 1, LastError: err.Error()}
		if qerr := outbox.Enqueue(ctx, job); qerr != nil {
			s.logger.Error(ctx, "commit batch could not be parked",
				logger.String("session", id),
				logger.Error(qerr),
			)
		}
	}
	return commit, err
}

// Status reports progress of session id.
func (s *Service) Status(_ context.Context, id string) (Status, error) {
	l, err := s.lookup(id)
	if err != nil {
		return Status{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return Status{
		ID:              l.sess.ID(),
		ContextID:       l.sess.ContextID(),
		State:           l.sess.State().String(),
		RoundsVoted:     l.sess.RoundsVoted(),
		RoundsPresented: l.sess.RoundsPresented(),
		Promotions:      len(l.sess.Promotions()),
		Candidates:      len(l.sess.Candidates()),
	}, nil
}

// Leaderboard returns the committed top n of contextID.
func (s *Service) Leaderboard(ctx context.Context, contextID string, n int) ([]repository.Entry, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.TopN(ctx, contextID, n)
}

// Rank returns the committed leaderboard row of record id.
func (s *Service) Rank(ctx context.Context, id string) (repository.Entry, error) {
	if s.store == nil {
		return repository.Entry{}, ErrNoStore
	}
	return s.store.Rank(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.running,
		"liveSessions":   len(s.sessions),
		"sessionsOpened": s.started,
		"outboxWorkers":  s.workerCount,
		"outboxSize":     s.queueSize,
	}
	if s.running {
		stats["outboxLength"] = s.outbox.Len(context.Background())
	}
	return stats
}
