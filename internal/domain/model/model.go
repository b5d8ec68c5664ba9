// Package model contains domain models passed between layers.
//
// All timestamps are unix seconds, UTC. Identifiers are opaque strings:
// season/week ids come from configuration, segment and participant ids
// from the upstream tracking platform, and row ids are generated by the
// store on commit.
package model

// Season is one competition season. Seasons may overlap; nothing in the
// engine assumes exclusivity.
type Season struct {
	ID      string
	Name    string
	StartAt int64
	EndAt   int64
	Active  bool
}

// Contains reports whether ts falls inside the season window, inclusive
// on both ends.
func (s Season) Contains(ts int64) bool {
	return ts >= s.StartAt && ts <= s.EndAt
}

// Segment is the course segment ridden during a week. Identity is the
// external course id; metadata may be refreshed independently.
type Segment struct {
	ID        string
	Name      string
	DistanceM float64
	AvgGrade  float64
	City      string
}

// Week is one scored round of a season: a segment, a time window, a
// minimum lap count and a points multiplier.
type Week struct {
	ID           string
	Name         string
	SeasonID     string
	SegmentID    string
	RequiredLaps int
	Multiplier   int
	StartAt      int64
	EndAt        int64
	Notes        string
}

// Contains reports whether ts falls inside the week window, inclusive on
// both ends. The week window is checked independently of its season.
func (w Week) Contains(ts int64) bool {
	return ts >= w.StartAt && ts <= w.EndAt
}

// Participant is a registered rider.
type Participant struct {
	ID          string
	DisplayName string
}

// Activity is the one counted ride of a participant for a week.
// At most one Activity exists per (WeekID, ParticipantID); a corrected
// observation replaces it wholesale.
type Activity struct {
	ID                 string
	WeekID             string
	ParticipantID      string
	ExternalActivityID string
	StartAt            int64
	DeviceName         string
}

// SegmentEffort is one lap attempt within an activity. Every effort of
// the observed activity is stored, not only the qualifying ones, so the
// audit trail survives later configuration changes.
type SegmentEffort struct {
	ID             string
	ActivityID     string
	SegmentID      string
	EffortIndex    int
	ElapsedSeconds int64
	StartAt        int64
	PRAchieved     bool
}

// Result is the canonical scoring input for one (week, participant)
// pair. Rank and points are derived at read time and never stored.
type Result struct {
	ID               string
	WeekID           string
	ParticipantID    string
	ActivityID       string
	TotalTimeSeconds int64
}
