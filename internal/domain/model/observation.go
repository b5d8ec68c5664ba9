package model

import "fmt"

// Observation is the raw record the activity-tracking client delivers
// for one observed ride. It is the only input the engine classifies;
// nothing here has been persisted yet.
type Observation struct {
	ParticipantID      string
	DisplayName        string
	ExternalActivityID string
	StartAt            int64
	DeviceName         string
	Efforts            []ObservedEffort
}

// ObservedEffort mirrors one upstream segment effort. PRRank is the
// platform's personal-record rank; it is nullable upstream, so a pointer.
type ObservedEffort struct {
	SegmentID      string
	ElapsedSeconds int64
	StartAt        int64
	PRRank         *int
}

// PRAchieved maps the upstream pr_rank to the stored flag. Only a truthy
// rank counts: both a missing rank and pr_rank = 0 yield false.
func (e ObservedEffort) PRAchieved() bool {
	return e.PRRank != nil && *e.PRRank > 0
}

// Validate rejects malformed upstream data before any write happens.
func (o Observation) Validate() error {
	switch {
	case o.ParticipantID == "":
		return ErrMissingParticipant
	case o.ExternalActivityID == "":
		return ErrMissingActivityID
	case o.StartAt <= 0:
		return ErrInvalidStart
	}
	for i, e := range o.Efforts {
		if e.SegmentID == "" {
			return fmt.Errorf("effort %d: %w", i, ErrMissingSegment)
		}
		if e.ElapsedSeconds <= 0 {
			return fmt.Errorf("effort %d: %w", i, ErrInvalidElapsed)
		}
	}
	return nil
}
