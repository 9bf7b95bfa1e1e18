package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/duel/internal/adapters/mq/queue"
	worker "github.com/okian/duel/internal/adapters/mq/worker"
	model "github.com/okian/duel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// flakyApplier fails the first failures calls, then records batches.
type flakyApplier struct {
	mu       sync.Mutex
	failures int
	calls    int
	applied  [][]model.RatingUpdate
}

func (f *flakyApplier) ApplyRatingBatch(_ context.Context, updates []model.RatingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("storage unavailable")
	}
	f.applied = append(f.applied, updates)
	return nil
}

func (f *flakyApplier) snapshot() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, len(f.applied)
}

type deadLetters struct {
	mu   sync.Mutex
	jobs []queue.Job
	errs []error
}

func (d *deadLetters) record(_ context.Context, j queue.Job, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, j)
	d.errs = append(d.errs, err)
}

func (d *deadLetters) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func commitJob(session string, attempts int) queue.Job {
	return queue.Job{
		Commit: model.Commit{
			SessionID: session,
			Updates:   []model.RatingUpdate{{PersistedID: "a", FinalRating: 1216}, {PersistedID: "b", FinalRating: 1184}},
		},
		Attempts: attempts,
	}
}

func drain(t *testing.T, p *worker.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestWorkerRetries(t *testing.T) {
	convey.Convey("Given an outbox with a flaky storage", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		dl := &deadLetters{}

		convey.Convey("When the batch succeeds on the third delivery", func() {
			a := &flakyApplier{failures: 2}
			p := worker.NewPool(1, q, a,
				worker.WithMaxAttempts(5),
				worker.WithBackoff(0),
				worker.WithDeadLetter(dl.record),
			)
			p.Start(ctx)
			convey.So(q.Enqueue(ctx, commitJob("s1", 0)), convey.ShouldBeNil)
			drain(t, p)

			convey.Convey("Then it is applied once and nothing is dead-lettered", func() {
				calls, applied := a.snapshot()
				convey.So(calls, convey.ShouldEqual, 3)
				convey.So(applied, convey.ShouldEqual, 1)
				convey.So(a.applied[0], convey.ShouldResemble, commitJob("s1", 0).Commit.Updates)
				convey.So(dl.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When storage never recovers", func() {
			a := &flakyApplier{failures: 100}
			p := worker.NewPool(1, q, a,
				worker.WithMaxAttempts(3),
				worker.WithBackoff(time.Millisecond),
				worker.WithDeadLetter(dl.record),
			)
			p.Start(ctx)
			convey.So(q.Enqueue(ctx, commitJob("s2", 1)), convey.ShouldBeNil)
			drain(t, p)

			convey.Convey("Then the job uses its remaining attempts and is dead-lettered unchanged", func() {
				calls, applied := a.snapshot()
				convey.So(calls, convey.ShouldEqual, 2)
				convey.So(applied, convey.ShouldEqual, 0)
				convey.So(dl.count(), convey.ShouldEqual, 1)
				convey.So(dl.jobs[0].Attempts, convey.ShouldEqual, 3)
				convey.So(dl.jobs[0].Commit, convey.ShouldResemble, commitJob("s2", 1).Commit)
				convey.So(dl.jobs[0].LastError, convey.ShouldContainSubstring, "storage unavailable")
			})
		})

		convey.Convey("When several workers share the queue", func() {
			a := &flakyApplier{}
			p := worker.NewPool(3, q, a, worker.WithBackoff(0))
			p.Start(ctx)
			for _, s := range []string{"s1", "s2", "s3", "s4", "s5"} {
				convey.So(q.Enqueue(ctx, commitJob(s, 0)), convey.ShouldBeNil)
			}
			drain(t, p)

			convey.Convey("Then every batch is applied exactly once", func() {
				calls, applied := a.snapshot()
				convey.So(calls, convey.ShouldEqual, 5)
				convey.So(applied, convey.ShouldEqual, 5)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, &flakyApplier{})
		go w.Run(ctx)

		convey.Convey("When it is shut down", func() {
			sctx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			err := w.Shutdown(sctx)

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})
		})
	})
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWorkerInterruption(t *testing.T) {
	convey.Convey("Given parked batches waiting on a long backoff", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		dl := &deadLetters{}

		convey.Convey("When the run context is canceled mid-backoff", func() {
			a := &flakyApplier{failures: 100}
			ctx, cancel := context.WithCancel(context.Background())
			p := worker.NewPool(1, q, a,
				worker.WithBackoff(time.Second),
				worker.WithDeadLetter(dl.record),
			)
			p.Start(ctx)
			for _, s := range []string{"s1", "s2", "s3"} {
				convey.So(q.Enqueue(context.Background(), commitJob(s, 1)), convey.ShouldBeNil)
			}
			waitFor(t, func() bool { return q.Len(context.Background()) < 3 })
			cancel()
			convey.So(q.Enqueue(context.Background(), commitJob("s4", 1)), convey.ShouldBeNil)
			drain(t, p)

			convey.Convey("Then every batch gets one last delivery and is dead-lettered", func() {
				calls, applied := a.snapshot()
				convey.So(applied, convey.ShouldEqual, 0)
				convey.So(calls, convey.ShouldEqual, 4)
				convey.So(dl.count(), convey.ShouldEqual, 4)
				for _, err := range dl.errs {
					convey.So(errors.Is(err, worker.ErrInterrupted), convey.ShouldBeTrue)
				}
				convey.So(errors.Is(dl.errs[0], context.Canceled), convey.ShouldBeTrue)
				convey.So(q.Len(context.Background()), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutdown runs out of time while storage has recovered", func() {
			a := &flakyApplier{}
			p := worker.NewPool(1, q, a,
				worker.WithBackoff(10*time.Second),
				worker.WithDeadLetter(dl.record),
			)
			p.Start(context.Background())
			convey.So(q.Enqueue(context.Background(), commitJob("s1", 1)), convey.ShouldBeNil)
			convey.So(q.Enqueue(context.Background(), commitJob("s2", 1)), convey.ShouldBeNil)
			waitFor(t, func() bool { return q.Len(context.Background()) < 2 })

			sctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			err := p.Shutdown(sctx)

			convey.Convey("Then the waiting batches are applied instead of dropped", func() {
				convey.So(err, convey.ShouldBeNil)
				calls, applied := a.snapshot()
				convey.So(calls, convey.ShouldEqual, 2)
				convey.So(applied, convey.ShouldEqual, 2)
				convey.So(dl.count(), convey.ShouldEqual, 0)
			})
		})
	})
}
