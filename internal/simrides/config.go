// Package simrides generates synthetic ride observations and drives
// them through a running engine, then checks the resulting standings.
package simrides

import "time"

// Config holds configuration for the ride simulation.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumRiders    int           // Number of riders to simulate
	WeekID       string        // Week to target
	SegmentID    string        // Segment the week is ridden on
	RequiredLaps int           // Laps each rider attempts at minimum
	WindowStart  int64         // Week window start, unix seconds
	WindowEnd    int64         // Week window end, unix seconds
	Workers      int           // Number of concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Log file for simulation output
	Verbose      bool          // Enable verbose logging
}

// Observation mirrors the engine's intake payload.
type Observation struct {
	ParticipantID      string   `json:"participant_id"`
	DisplayName        string   `json:"display_name"`
	ExternalActivityID string   `json:"external_activity_id"`
	StartAt            int64    `json:"start_at"`
	DeviceName         string   `json:"device_name"`
	Efforts            []Effort `json:"efforts"`
}

// Effort mirrors one segment effort of the intake payload.
type Effort struct {
	SegmentID      string `json:"segment_id"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	StartAt        int64  `json:"start_at"`
	PRRank         *int   `json:"pr_rank,omitempty"`
}

// Ack mirrors the engine's observation acknowledgement.
type Ack struct {
	Status         string   `json:"status"`
	WeeksChecked   int      `json:"weeks_checked"`
	CommittedWeeks []string `json:"committed_weeks"`
}

// Entry mirrors a leaderboard row.
type Entry struct {
	Rank             int    `json:"rank"`
	ParticipantID    string `json:"participant_id"`
	DisplayName      string `json:"display_name"`
	TotalTimeSeconds int64  `json:"total_time_seconds"`
	TotalPoints      int    `json:"total_points"`
}

// Stats holds simulation statistics.
type Stats struct {
	ObservationsGenerated int
	ObservationsSubmitted int
	Qualified             int
	NotQualified          int
	Failed                int
	LeaderboardEntries    int
	StartTime             time.Time
	EndTime               time.Time
	Duration              time.Duration
}
