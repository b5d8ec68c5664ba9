// Package repository defines the persistence contract for the series
// engine and its two implementations (in-memory and Postgres).
package repository

import (
	"context"

	"github.com/veloclub/segweek/internal/domain/model"
)

// CommitRequest carries everything the store needs to replace the
// counted activity for one (week, participant) pair. Efforts must be in
// arrival order; the store assigns row ids and 0-based effort indices.
type CommitRequest struct {
	WeekID             string
	ParticipantID      string
	ExternalActivityID string
	DeviceName         string
	StartAt            int64
	Efforts            []model.SegmentEffort
	TotalTimeSeconds   int64
}

// WeekResult is one result row joined with the display data the read
// side needs: participant name, activity detail and the stored efforts.
type WeekResult struct {
	ResultID           string
	WeekID             string
	ParticipantID      string
	DisplayName        string
	ActivityID         string
	ExternalActivityID string
	DeviceName         string
	StartAt            int64
	TotalTimeSeconds   int64
	Efforts            []model.SegmentEffort
}

// Store provides access to competition configuration and the canonical
// activity/effort/result records.
//
// CommitActivity and RetractActivity confine their writes to the
// activity, segment effort and result tables; season, week, segment and
// participant configuration is never touched by the engine write path.
type Store interface {
	// SeedCompetition loads the configured seasons, segments and weeks.
	// Called once at startup; the engine reads them but never writes.
	SeedCompetition(ctx context.Context, seasons []model.Season, segments []model.Segment, weeks []model.Week) error

	Seasons(ctx context.Context) ([]model.Season, error)
	Weeks(ctx context.Context) ([]model.Week, error)

	// Week returns one week. ErrWeekNotFound for unknown ids.
	Week(ctx context.Context, weekID string) (model.Week, error)

	// UpsertParticipant registers a rider, refreshing the display name
	// on re-observation.
	UpsertParticipant(ctx context.Context, p model.Participant) error

	// CommitActivity idempotently replaces the counted activity for the
	// pair: the prior Result, SegmentEfforts and Activity rows are
	// deleted in that order, then fresh rows inserted, as one atomic
	// unit. Returns the new activity id. Concurrent commits for the
	// same pair are serialized; distinct pairs proceed in parallel.
	CommitActivity(ctx context.Context, req CommitRequest) (string, error)

	// RetractActivity removes Result, SegmentEfforts and Activity for
	// the pair, leaving no trace. ErrResultNotFound when the pair has
	// no counted activity.
	RetractActivity(ctx context.Context, weekID, participantID string) error

	// WeekResults returns all results of a week with efforts attached,
	// in no particular order; ranking happens at read time elsewhere.
	// ErrWeekNotFound for unknown ids.
	WeekResults(ctx context.Context, weekID string) ([]WeekResult, error)

	// ResultTimesForParticipant maps week id to the participant's
	// recorded total time, across all weeks.
	ResultTimesForParticipant(ctx context.Context, participantID string) (map[string]int64, error)

	// Counts reports store scale for stats and metrics.
	Counts(ctx context.Context) (results, participants int)

	Close() error
}
