// Package worker retries commit batches parked in the outbox queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/duel/internal/adapters/mq/queue"
	"github.com/okian/duel/internal/domain/session"
	"github.com/okian/duel/pkg/logger"
	"github.com/okian/duel/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultMaxAttempts = 5
	defaultBackoff     = 200 * time.Millisecond
	maxBackoff         = 30 * time.Second
	poolShutdownWait   = 30 * time.Second
)

// Applier writes a commit batch to storage.
type Applier = session.BatchApplier

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// DeadLetter receives jobs that ran out of attempts.
type DeadLetter func(ctx context.Context, j queue.Job, err error)

// Worker processes jobs until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker retries commit jobs with exponential backoff.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string

	maxAttempts int
	backoff     time.Duration
	deadLetter  DeadLetter

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, a Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       q,
		applier:     a,
		name:        "outbox",
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop. When ctx is canceled or the worker is shut
// down, every job still reachable is flushed instead of abandoned.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			w.flush(ctx, jobs)
			return
		case <-w.shutdown:
			w.flush(ctx, jobs)
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "commit batch not applied",
					logger.String("session", j.Commit.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker. A retry waiting on its backoff is
// cut short and flushed.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process delivers j until it succeeds or runs out of attempts. Batches set
// ratings absolutely, so redelivery is safe.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) error {
	var lastErr error
	if j.LastError != "" {
		lastErr = errors.New(j.LastError)
	}
	for j.Attempts < w.maxAttempts {
		if j.Attempts > 0 {
			if err := w.wait(ctx, w.delay(j.Attempts)); err != nil {
				return w.final(ctx, j, err)
			}
		}
		j.Attempts++
		metrics.RecordOutboxRetry()

		start := time.Now()
		err := session.Submit(ctx, w.applier, j.Commit)
		if err == nil {
			metrics.RecordCommit(metrics.CommitRetried, len(j.Commit.Updates), float64(time.Since(start).Milliseconds()))
			w.logger.Info(ctx, "commit batch applied",
				logger.String("session", j.Commit.SessionID),
				logger.Int("attempt", j.Attempts),
			)
			return nil
		}
		lastErr = err
		j.LastError = err.Error()
		w.logger.Warn(ctx, "commit retry failed",
			logger.String("session", j.Commit.SessionID),
			logger.Int("attempt", j.Attempts),
			logger.Error(err),
		)
		if ctx.Err() != nil {
			return w.final(ctx, j, ctx.Err())
		}
	}

	metrics.RecordCommit(metrics.CommitDropped, len(j.Commit.Updates), 0)
	metrics.RecordErrorByComponent("outbox", "retry_exhausted")
	if lastErr == nil {
		lastErr = errors.New("no attempts left")
	}
	if w.deadLetter != nil {
		w.deadLetter(ctx, j, lastErr)
	}
	return fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// final makes one last delivery of j, detached from ctx cancellation, and
// dead-letters it if that fails. cause says why retrying stopped.
func (w *InMemoryWorker) final(ctx context.Context, j queue.Job, cause error) error {
	ctx = context.WithoutCancel(ctx)
	j.Attempts++
	metrics.RecordOutboxRetry()

	start := time.Now()
	err := session.Submit(ctx, w.applier, j.Commit)
	if err == nil {
		metrics.RecordCommit(metrics.CommitRetried, len(j.Commit.Updates), float64(time.Since(start).Milliseconds()))
		w.logger.Info(ctx, "commit batch applied on flush",
			logger.String("session", j.Commit.SessionID),
			logger.Int("attempt", j.Attempts),
		)
		return nil
	}
	j.LastError = err.Error()
	metrics.RecordCommit(metrics.CommitDropped, len(j.Commit.Updates), 0)
	metrics.RecordErrorByComponent("outbox", "interrupted")
	err = fmt.Errorf("%w (%w): %w", ErrInterrupted, cause, err)
	if w.deadLetter != nil {
		w.deadLetter(ctx, j, err)
	}
	return err
}

// flush hands every job already queued to final without blocking.
func (w *InMemoryWorker) flush(ctx context.Context, jobs <-chan queue.Job) {
	cause := ctx.Err()
	if cause == nil {
		cause = ErrShutdown
	}
	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.final(ctx, j, cause); err != nil {
				w.logger.Error(ctx, "commit batch not applied",
					logger.String("session", j.Commit.SessionID),
					logger.Error(err),
				)
			}
		default:
			return
		}
	}
}

// delay returns the backoff before retry number n (1-based).
func (w *InMemoryWorker) delay(n int) time.Duration {
	d := w.backoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// wait sleeps for d unless ctx is canceled or the worker is shut down.
func (w *InMemoryWorker) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-w.shutdown:
		return ErrShutdown
	case <-t.C:
		return nil
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, q Queue, a Applier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("outbox-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(q, a, wopts...)
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue when it supports it and waits for the workers
// to drain what is left. Workers still retrying when ctx expires, or after
// poolShutdownWait, are stopped: each remaining job gets one last delivery
// and is dead-lettered if that fails.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, poolShutdownWait)
	defer cancel()
	if !p.wait(waitCtx) {
		p.logger.Warn(ctx, "outbox drain interrupted, flushing remaining batches")
		for _, w := range p.workers {
			w.stop()
		}
		flushCtx, cancelFlush := context.WithTimeout(context.WithoutCancel(ctx), poolShutdownWait)
		defer cancelFlush()
		if !p.wait(flushCtx) {
			return fmt.Errorf("outbox shutdown: %w", flushCtx.Err())
		}
	}

	// Workers that left on a canceled context may have missed late jobs.
	p.workers[0].flush(context.WithoutCancel(ctx), p.queue.Dequeue(ctx))
	return nil
}

// wait reports whether every worker finished before ctx was done.
func (p *Pool) wait(ctx context.Context) bool {
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return false
		}
	}
	return true
}
