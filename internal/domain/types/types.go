// Package types contains the read shapes exposed to API consumers.
package types

// LeaderboardEntry is one ranked row of a week's leaderboard.
type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	ParticipantID    string `json:"participant_id"`
	DisplayName      string `json:"display_name"`
	TotalTimeSeconds int64  `json:"total_time_seconds"`
	BasePoints       int    `json:"base_points"`
	PRBonus          int    `json:"pr_bonus"`
	TotalPoints      int    `json:"total_points"`
	PRAchieved       bool   `json:"pr_achieved"`
	Laps             []Lap  `json:"laps"`
}

// Lap is the per-effort breakdown shown alongside a leaderboard entry.
type Lap struct {
	EffortIndex    int    `json:"effort_index"`
	SegmentID      string `json:"segment_id"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	StartAt        int64  `json:"start_at"`
	PRAchieved     bool   `json:"pr_achieved"`
}

// GhostComparison is the time delta against the participant's most
// recent prior attempt at the same segment. A negative DiffSeconds means
// the current attempt was faster.
type GhostComparison struct {
	PreviousTimeSeconds int64  `json:"previous_time_seconds"`
	PreviousWeekID      string `json:"previous_week_id"`
	PreviousWeekName    string `json:"previous_week_name"`
	DiffSeconds         int64  `json:"diff_seconds"`
}

// WeekDecision is the per-week diagnostic row of a match outcome.
type WeekDecision struct {
	WeekID           string `json:"week_id"`
	Matched          bool   `json:"matched"`
	Reason           string `json:"reason"`
	TotalTimeSeconds int64  `json:"total_time_seconds,omitempty"`
}

// ObservationAck reports what happened to a submitted observation:
// the aggregate match status, the full per-week diagnostic trail and
// the ids of the weeks a result was committed for.
type ObservationAck struct {
	Status         string         `json:"status"`
	WeeksChecked   int            `json:"weeks_checked"`
	Weeks          []WeekDecision `json:"weeks"`
	CommittedWeeks []string       `json:"committed_weeks"`
}
