package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/veloclub/segweek/internal/adapters/mq/queue"
	"github.com/veloclub/segweek/internal/adapters/mq/worker"
	"github.com/veloclub/segweek/internal/domain/match"
	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recordingIngestor struct {
	mu       sync.Mutex
	seen     []string
	err      error
	received chan struct{}
}

func newRecordingIngestor() *recordingIngestor {
	return &recordingIngestor{received: make(chan struct{}, 64)}
}

func (r *recordingIngestor) ProcessObservation(_ context.Context, o model.Observation) (match.Outcome, error) {
	r.mu.Lock()
	r.seen = append(r.seen, o.ExternalActivityID)
	r.mu.Unlock()
	r.received <- struct{}{}
	return match.Outcome{Status: match.StatusQualified}, r.err
}

func (r *recordingIngestor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func waitFor(ch chan struct{}, n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-deadline:
			return false
		}
	}
	return true
}

func obs(id string) model.Observation {
	return model.Observation{
		ParticipantID:      "p1",
		ExternalActivityID: id,
		StartAt:            1700000000,
	}
}

func TestWorker(t *testing.T) {
	ctx := context.Background()

	Convey("Given a worker over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		ing := newRecordingIngestor()
		w := worker.NewWorker(q, ing, worker.WithName("worker-test"))

		Convey("It drains queued observations into the ingestor", func() {
			So(q.Enqueue(ctx, obs("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, obs("b")), ShouldBeTrue)

			go w.Run(ctx)
			So(waitFor(ing.received, 2, 2*time.Second), ShouldBeTrue)
			So(ing.count(), ShouldEqual, 2)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})

		Convey("Ingest errors do not stop the worker", func() {
			ing.err = errors.New("store down")
			So(q.Enqueue(ctx, obs("a")), ShouldBeTrue)
			So(q.Enqueue(ctx, obs("b")), ShouldBeTrue)

			go w.Run(ctx)
			So(waitFor(ing.received, 2, 2*time.Second), ShouldBeTrue)

			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})

		Convey("Shutdown returns once the worker stops", func() {
			go w.Run(ctx)
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	ctx := context.Background()

	Convey("Given a pool of workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		ing := newRecordingIngestor()
		p := worker.NewPool(4, q, ing)
		So(p.Size(), ShouldEqual, 4)

		Convey("Workers share the backlog", func() {
			for i := 0; i < 20; i++ {
				So(q.Enqueue(ctx, obs("a")), ShouldBeTrue)
			}
			p.Start(ctx)
			So(waitFor(ing.received, 20, 5*time.Second), ShouldBeTrue)
			So(ing.count(), ShouldEqual, 20)
			p.Stop()
		})

		Convey("A non-positive count still yields one worker", func() {
			So(worker.NewPool(0, q, ing).Size(), ShouldEqual, 1)
		})
	})
}
