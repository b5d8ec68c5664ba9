// Package worker drains the observation intake queue into the matching
// engine. Batch orchestration lives here, outside the engine: workers
// hand the engine one observation at a time and the engine stays
// synchronous.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/veloclub/segweek/internal/domain/match"
	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/pkg/logger"
	"github.com/veloclub/segweek/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Observation is what workers read off the queue.
type Observation = model.Observation

// Ingestor runs one observation through validate/resolve/commit and
// returns the match outcome.
type Ingestor interface {
	ProcessObservation(ctx context.Context, o Observation) (match.Outcome, error)
}

// Queue defines how workers receive observations.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Observation
}

// Worker processes observations until stopped.
type Worker struct {
	queue    Queue
	ingestor Ingestor
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, ingestor Ingestor, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		ingestor: ingestor,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes observations until ctx is canceled, the queue closes or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	in := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case o, ok := <-in:
			if !ok {
				return
			}
			w.process(ctx, o)
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight observation.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "worker shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, o Observation) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	outcome, err := w.ingestor.ProcessObservation(ctx, o)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "ingest_error")
		w.logger.Error(ctx, "observation processing failed",
			logger.String("worker", w.name),
			logger.String("externalActivityID", o.ExternalActivityID),
			logger.String("participantID", o.ParticipantID),
			logger.Error(err),
		)
		return
	}

	w.logger.Debug(ctx, "observation processed",
		logger.String("externalActivityID", o.ExternalActivityID),
		logger.String("participantID", o.ParticipantID),
		logger.String("status", string(outcome.Status)),
		logger.Int("weeksChecked", len(outcome.Decisions)),
	)
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	queue   Queue

	logger logger.Logger
}

// NewPool creates count workers sharing the queue and ingestor.
func NewPool(count int, q Queue, ingestor Ingestor) *Pool {
	if count < 1 {
		count = 1
	}
	p := &Pool{
		queue:  q,
		logger: logger.Get().Named("workerpool"),
	}
	for i := 0; i < count; i++ {
		p.workers = append(p.workers, NewWorker(q, ingestor, WithName("worker-"+strconv.Itoa(i))))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Stop shuts every worker down, bounded by a pool-wide timeout.
func (p *Pool) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), poolShutdownTimeout)
	defer cancel()

	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker did not stop cleanly", logger.Error(err))
		}
	}
	metrics.UpdateWorkerCount(0)
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}
