// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them in Load.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"runtime"
)

// Store backend names accepted in configuration.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// SeasonConfig is one configured season.
type SeasonConfig struct {
	ID      string `koanf:"id"`
	Name    string `koanf:"name"`
	StartAt int64  `koanf:"start_at"`
	EndAt   int64  `koanf:"end_at"`
	Active  bool   `koanf:"active"`
}

// SegmentConfig is one configured course segment.
type SegmentConfig struct {
	ID        string  `koanf:"id"`
	Name      string  `koanf:"name"`
	DistanceM float64 `koanf:"distance_m"`
	AvgGrade  float64 `koanf:"avg_grade"`
	City      string  `koanf:"city"`
}

// WeekConfig is one scored round: a segment, a window, a lap minimum
// and a points multiplier.
type WeekConfig struct {
	ID           string `koanf:"id"`
	Name         string `koanf:"name"`
	SeasonID     string `koanf:"season_id"`
	SegmentID    string `koanf:"segment_id"`
	RequiredLaps int    `koanf:"required_laps"`
	Multiplier   int    `koanf:"multiplier"`
	StartAt      int64  `koanf:"start_at"`
	EndAt        int64  `koanf:"end_at"`
	Notes        string `koanf:"notes"`
}

// CompetitionConfig holds the seeded seasons, segments and weeks.
type CompetitionConfig struct {
	Seasons  []SeasonConfig  `koanf:"seasons"`
	Segments []SegmentConfig `koanf:"segments"`
	Weeks    []WeekConfig    `koanf:"weeks"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the persistence layer: memory or postgres.
	StoreBackend string `koanf:"store_backend"`

	// DatabaseDSN is the Postgres connection string. Required when
	// StoreBackend is postgres.
	DatabaseDSN string `koanf:"database_dsn"`

	// QueueSize bounds the in-memory observation intake queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of intake workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxLeaderboardLimit caps how many entries GET /leaderboard returns.
	// Zero means unlimited.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// AdminAthleteIDs lists platform athlete ids allowed to retract
	// results.
	AdminAthleteIDs []string `koanf:"admin_athlete_ids"`

	// Competition is the seeded season/segment/week setup.
	Competition CompetitionConfig `koanf:"competition"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		StoreBackend:        StoreMemory,
		QueueSize:           10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		MaxLeaderboardLimit: 0,
	}
}

// Validate checks cross-field constraints after loading.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.StoreBackend != StoreMemory && c.StoreBackend != StorePostgres {
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	if c.StoreBackend == StorePostgres && c.DatabaseDSN == "" {
		return fmt.Errorf("%w: database_dsn is required for the postgres backend", ErrInvalidConfig)
	}
	return c.Competition.validate()
}

func (c CompetitionConfig) validate() error {
	seasons := make(map[string]bool, len(c.Seasons))
	for _, s := range c.Seasons {
		if s.ID == "" {
			return fmt.Errorf("%w: season id must not be empty", ErrInvalidConfig)
		}
		if seasons[s.ID] {
			return fmt.Errorf("%w: duplicate season id %q", ErrInvalidConfig, s.ID)
		}
		if s.EndAt < s.StartAt {
			return fmt.Errorf("%w: season %q ends before it starts", ErrInvalidConfig, s.ID)
		}
		seasons[s.ID] = true
	}

	segments := make(map[string]bool, len(c.Segments))
	for _, seg := range c.Segments {
		if seg.ID == "" {
			return fmt.Errorf("%w: segment id must not be empty", ErrInvalidConfig)
		}
		if segments[seg.ID] {
			return fmt.Errorf("%w: duplicate segment id %q", ErrInvalidConfig, seg.ID)
		}
		segments[seg.ID] = true
	}

	weeks := make(map[string]bool, len(c.Weeks))
	for _, w := range c.Weeks {
		switch {
		case w.ID == "":
			return fmt.Errorf("%w: week id must not be empty", ErrInvalidConfig)
		case weeks[w.ID]:
			return fmt.Errorf("%w: duplicate week id %q", ErrInvalidConfig, w.ID)
		case !seasons[w.SeasonID]:
			return fmt.Errorf("%w: week %q references unknown season %q", ErrInvalidConfig, w.ID, w.SeasonID)
		case !segments[w.SegmentID]:
			return fmt.Errorf("%w: week %q references unknown segment %q", ErrInvalidConfig, w.ID, w.SegmentID)
		case w.RequiredLaps < 1:
			return fmt.Errorf("%w: week %q requires at least one lap", ErrInvalidConfig, w.ID)
		case w.Multiplier < 1:
			return fmt.Errorf("%w: week %q multiplier must be at least 1", ErrInvalidConfig, w.ID)
		case w.EndAt < w.StartAt:
			return fmt.Errorf("%w: week %q ends before it starts", ErrInvalidConfig, w.ID)
		}
		weeks[w.ID] = true
	}
	return nil
}
