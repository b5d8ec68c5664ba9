// Package service provides the core series engine service that
// implements the dependencies required by the HTTP API. It owns the
// observation pipeline: validate, resolve against the configured weeks,
// commit one result per matched week.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/veloclub/segweek/internal/adapters/mq/queue"
	"github.com/veloclub/segweek/internal/adapters/mq/worker"
	"github.com/veloclub/segweek/internal/adapters/repository"
	"github.com/veloclub/segweek/internal/domain/ghost"
	"github.com/veloclub/segweek/internal/domain/match"
	"github.com/veloclub/segweek/internal/domain/model"
	"github.com/veloclub/segweek/internal/domain/scoring"
	"github.com/veloclub/segweek/internal/domain/types"
	"github.com/veloclub/segweek/pkg/logger"
	"github.com/veloclub/segweek/pkg/metrics"
)

// Competition bundles the configured seasons, segments and weeks seeded
// into the store at startup.
type Competition struct {
	Seasons  []model.Season
	Segments []model.Segment
	Weeks    []model.Week
}

// Service implements the API dependencies for the series engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	resolver *match.Resolver
	intake   queue.Queue
	pool     *worker.Pool

	// Configuration
	workerCount         int
	queueSize           int
	maxLeaderboardLimit int
	competition         Competition

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Defaults to the in-memory
// store when unset.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of intake worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the intake queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCompetition sets the seasons, segments and weeks to seed.
func WithCompetition(c Competition) Option {
	return func(s *Service) {
		s.competition = c
	}
}

// WithMaxLeaderboardLimit caps how many entries a leaderboard read
// returns. Zero means unlimited.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLeaderboardLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		resolver:    match.NewResolver(),
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10000,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting series engine...")

	if s.store == nil {
		s.store = repository.NewMemStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}

	if err := s.store.SeedCompetition(ctx, s.competition.Seasons, s.competition.Segments, s.competition.Weeks); err != nil {
		return fmt.Errorf("seeding competition: %w", err)
	}

	s.intake = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
	)
	s.pool = worker.NewPool(s.workerCount, s.intake, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "series engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("seasons", len(s.competition.Seasons)),
		logger.Int("weeks", len(s.competition.Weeks)),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping series engine...")

	if s.intake != nil {
		_ = s.intake.Close()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "series engine stopped")
}

// SubmitObservation runs one observation through the full pipeline
// synchronously and reports the per-week diagnostic trail.
func (s *Service) SubmitObservation(ctx context.Context, o model.Observation) (types.ObservationAck, error) {
	outcome, committed, err := s.process(ctx, o)
	if err != nil {
		return types.ObservationAck{}, err
	}

	ack := types.ObservationAck{
		Status:         string(outcome.Status),
		WeeksChecked:   len(outcome.Decisions),
		Weeks:          make([]types.WeekDecision, 0, len(outcome.Decisions)),
		CommittedWeeks: committed,
	}
	for _, d := range outcome.Decisions {
		ack.Weeks = append(ack.Weeks, types.WeekDecision{
			WeekID:           d.Week.ID,
			Matched:          d.Matched,
			Reason:           d.Reason,
			TotalTimeSeconds: d.TotalTimeSeconds,
		})
	}
	return ack, nil
}

// ProcessObservation is the worker entry point for the batch path.
func (s *Service) ProcessObservation(ctx context.Context, o model.Observation) (match.Outcome, error) {
	outcome, _, err := s.process(ctx, o)
	return outcome, err
}

// EnqueueObservation hands an observation to the intake queue. Returns
// false when the queue is full or closed.
func (s *Service) EnqueueObservation(ctx context.Context, o model.Observation) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return false
	}
	return s.intake.Enqueue(ctx, o)
}

// process validates, resolves and commits one observation. Returns the
// match outcome and the ids of the weeks a result was committed for.
func (s *Service) process(ctx context.Context, o model.Observation) (match.Outcome, []string, error) {
	if err := o.Validate(); err != nil {
		metrics.RecordObservationRejected()
		return match.Outcome{}, nil, fmt.Errorf("%w: %w", ErrInvalidObservation, err)
	}
	metrics.RecordObservationReceived()

	if err := s.store.UpsertParticipant(ctx, model.Participant{
		ID:          o.ParticipantID,
		DisplayName: o.DisplayName,
	}); err != nil {
		return match.Outcome{}, nil, fmt.Errorf("upserting participant: %w", err)
	}

	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		return match.Outcome{}, nil, fmt.Errorf("loading seasons: %w", err)
	}
	weeks, err := s.store.Weeks(ctx)
	if err != nil {
		return match.Outcome{}, nil, fmt.Errorf("loading weeks: %w", err)
	}

	outcome := s.resolver.Resolve(o.Efforts, o.StartAt, seasons, weeks)
	metrics.RecordMatchOutcome(string(outcome.Status))

	// The full effort list is stored with each commit; the result row
	// carries the qualifying total. PR bonus at read time looks across
	// the whole activity, so non-qualifying laps matter too.
	efforts := make([]model.SegmentEffort, 0, len(o.Efforts))
	for _, e := range o.Efforts {
		efforts = append(efforts, model.SegmentEffort{
			SegmentID:      e.SegmentID,
			ElapsedSeconds: e.ElapsedSeconds,
			StartAt:        e.StartAt,
			PRAchieved:     e.PRAchieved(),
		})
	}

	var committed []string
	for _, d := range outcome.Matches() {
		start := time.Now()
		if _, err := s.store.CommitActivity(ctx, repository.CommitRequest{
			WeekID:             d.Week.ID,
			ParticipantID:      o.ParticipantID,
			ExternalActivityID: o.ExternalActivityID,
			DeviceName:         o.DeviceName,
			StartAt:            o.StartAt,
			Efforts:            efforts,
			TotalTimeSeconds:   d.TotalTimeSeconds,
		}); err != nil {
			metrics.RecordErrorByComponent("service", "commit_error")
			return outcome, committed, fmt.Errorf("committing week %s: %w", d.Week.ID, err)
		}
		metrics.RecordResultCommitted()
		metrics.RecordCommitLatency(float64(time.Since(start).Milliseconds()))
		committed = append(committed, d.Week.ID)

		s.logger.Debug(ctx, "result committed",
			logger.String("weekID", d.Week.ID),
			logger.String("participantID", o.ParticipantID),
			logger.Int64("totalTimeSeconds", d.TotalTimeSeconds),
		)
	}
	return outcome, committed, nil
}

// Retract removes the counted activity for a (week, participant) pair.
func (s *Service) Retract(ctx context.Context, weekID, participantID string) error {
	if err := s.store.RetractActivity(ctx, weekID, participantID); err != nil {
		return err
	}
	metrics.RecordResultRetracted()
	s.logger.Info(ctx, "result retracted",
		logger.String("weekID", weekID),
		logger.String("participantID", participantID),
	)
	return nil
}

// Leaderboard returns the ranked standings for one week. Rank and
// points are derived here on every read; the store holds only times.
func (s *Service) Leaderboard(ctx context.Context, weekID string) ([]types.LeaderboardEntry, error) {
	week, err := s.store.Week(ctx, weekID)
	if err != nil {
		return nil, err
	}
	results, err := s.store.WeekResults(ctx, weekID)
	if err != nil {
		return nil, err
	}

	inputs := make([]scoring.Input, 0, len(results))
	for _, r := range results {
		in := scoring.Input{
			ParticipantID:    r.ParticipantID,
			DisplayName:      r.DisplayName,
			ActivityID:       r.ActivityID,
			TotalTimeSeconds: r.TotalTimeSeconds,
		}
		for _, e := range r.Efforts {
			if e.PRAchieved {
				in.AnyPR = true
			}
			in.Laps = append(in.Laps, scoring.Lap{
				EffortIndex:    e.EffortIndex,
				SegmentID:      e.SegmentID,
				ElapsedSeconds: e.ElapsedSeconds,
				StartAt:        e.StartAt,
				PRAchieved:     e.PRAchieved,
			})
		}
		inputs = append(inputs, in)
	}

	ranked := scoring.RankWeek(inputs, week.Multiplier)
	if s.maxLeaderboardLimit > 0 && len(ranked) > s.maxLeaderboardLimit {
		ranked = ranked[:s.maxLeaderboardLimit]
	}

	entries := make([]types.LeaderboardEntry, 0, len(ranked))
	for _, e := range ranked {
		entry := types.LeaderboardEntry{
			Rank:             e.Rank,
			ParticipantID:    e.ParticipantID,
			DisplayName:      e.DisplayName,
			TotalTimeSeconds: e.TotalTimeSeconds,
			BasePoints:       e.BasePoints,
			PRBonus:          e.PRBonus,
			TotalPoints:      e.TotalPoints,
			PRAchieved:       e.PRAchieved,
			Laps:             make([]types.Lap, 0, len(e.Laps)),
		}
		for _, l := range e.Laps {
			entry.Laps = append(entry.Laps, types.Lap{
				EffortIndex:    l.EffortIndex,
				SegmentID:      l.SegmentID,
				ElapsedSeconds: l.ElapsedSeconds,
				StartAt:        l.StartAt,
				PRAchieved:     l.PRAchieved,
			})
		}
		entries = append(entries, entry)
	}

	metrics.RecordLeaderboardRead()
	return entries, nil
}

// Ghost compares the participant's time for a week against their most
// recent prior attempt at the same segment. Returns nil with no error
// when there is nothing to compare.
func (s *Service) Ghost(ctx context.Context, weekID, participantID string) (*types.GhostComparison, error) {
	week, err := s.store.Week(ctx, weekID)
	if err != nil {
		return nil, err
	}
	weeks, err := s.store.Weeks(ctx)
	if err != nil {
		return nil, err
	}
	times, err := s.store.ResultTimesForParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}

	metrics.RecordGhostRead()

	c := ghost.Compare(week, weeks, times)
	if c == nil {
		return nil, nil
	}
	return &types.GhostComparison{
		PreviousTimeSeconds: c.PreviousTimeSeconds,
		PreviousWeekID:      c.PreviousWeek.ID,
		PreviousWeekName:    c.PreviousWeek.Name,
		DiffSeconds:         c.DiffSeconds,
	}, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"weeks":       len(s.competition.Weeks),
	}

	if s.started {
		queueLen := s.intake.Len(ctx)
		results, participants := s.store.Counts(ctx)

		stats["queueLength"] = queueLen
		stats["results"] = results
		stats["participants"] = participants

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateStoreResults(results)
		metrics.UpdateStoreParticipants(participants)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
