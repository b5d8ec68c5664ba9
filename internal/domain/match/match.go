// Package match classifies an observed activity against the configured
// seasons and weeks. It is pure: no persistence, no side effects.
package match

import (
	"fmt"

	"github.com/veloclub/segweek/internal/domain/model"
)

// Status is the aggregate verdict over all checked weeks.
type Status string

const (
	// StatusQualified means at least one week matched.
	StatusQualified Status = "qualified"
	// StatusInsufficientLaps means at least one week was time-eligible
	// and had efforts on its segment, but fewer than required.
	StatusInsufficientLaps Status = "insufficient_laps"
	// StatusNoSegments means at least one week was time-eligible but the
	// activity contains no effort on any of those weeks' segments.
	StatusNoSegments Status = "no_segments"
	// StatusNoMatchingWeeks means no week was time-eligible, including
	// the case where no season covered the activity start at all.
	StatusNoMatchingWeeks Status = "no_matching_weeks"
)

// Reason strings surfaced verbatim for operator diagnosis.
const (
	ReasonOutsideWindow = "Outside time window"
	ReasonNoSegments    = "No matching segments"
)

// Decision is the verdict for a single checked week. Weeks that fail are
// reported too; the diagnostic trail is a first-class output.
type Decision struct {
	Week    model.Week
	Matched bool
	Reason  string

	// MatchingEfforts counts the activity's efforts on the week's segment.
	MatchingEfforts int

	// QualifyingLaps are the first RequiredLaps matching efforts in
	// arrival order. Empty unless Matched.
	QualifyingLaps []model.ObservedEffort

	// TotalTimeSeconds sums the qualifying laps. Zero unless Matched.
	TotalTimeSeconds int64
}

// Outcome aggregates the decisions for every week checked.
type Outcome struct {
	Status    Status
	Decisions []Decision
}

// Matches returns only the matched decisions. An activity may match
// several weeks when overlapping seasons reuse a segment.
func (o Outcome) Matches() []Decision {
	var out []Decision
	for _, d := range o.Decisions {
		if d.Matched {
			out = append(out, d)
		}
	}
	return out
}

// Resolver decides which weeks an activity qualifies for.
type Resolver struct{}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve classifies one activity. efforts must be in arrival order; the
// caller supplies the current season/week configuration.
//
// Weeks are checked when their season covers the activity start. Each
// checked week then gates independently on its own window, the segment
// filter and the lap threshold. Qualifying laps are the first required
// laps in ride order, not the fastest.
func (r *Resolver) Resolve(efforts []model.ObservedEffort, startAt int64, seasons []model.Season, weeks []model.Week) Outcome {
	active := make(map[string]bool, len(seasons))
	for _, s := range seasons {
		if s.Contains(startAt) {
			active[s.ID] = true
		}
	}

	out := Outcome{Status: StatusNoMatchingWeeks}
	anyLapShort := false
	anyNoSegments := false

	for _, w := range weeks {
		if !active[w.SeasonID] {
			continue
		}
		d := Decision{Week: w}
		switch {
		case !w.Contains(startAt):
			d.Reason = ReasonOutsideWindow
		default:
			matching := effortsOnSegment(efforts, w.SegmentID)
			d.MatchingEfforts = len(matching)
			if len(matching) == 0 {
				d.Reason = ReasonNoSegments
				anyNoSegments = true
				break
			}
			d.Reason = fmt.Sprintf("%d/%d laps", len(matching), w.RequiredLaps)
			if len(matching) < w.RequiredLaps {
				anyLapShort = true
				break
			}
			d.Matched = true
			d.QualifyingLaps = matching[:w.RequiredLaps]
			for _, e := range d.QualifyingLaps {
				d.TotalTimeSeconds += e.ElapsedSeconds
			}
		}
		out.Decisions = append(out.Decisions, d)
	}

	switch {
	case len(out.Matches()) > 0:
		out.Status = StatusQualified
	case anyLapShort:
		out.Status = StatusInsufficientLaps
	case anyNoSegments:
		out.Status = StatusNoSegments
	}
	return out
}

// effortsOnSegment filters efforts to one segment, preserving order.
func effortsOnSegment(efforts []model.ObservedEffort, segmentID string) []model.ObservedEffort {
	var out []model.ObservedEffort
	for _, e := range efforts {
		if e.SegmentID == segmentID {
			out = append(out, e)
		}
	}
	return out
}
