// Package ghost compares a participant's current-week time against
// their most recent prior attempt at the same segment. Informational
// only; never feeds back into scoring.
package ghost

import "github.com/veloclub/segweek/internal/domain/model"

// Comparison is the ghost payload for one participant and week.
type Comparison struct {
	PreviousWeek        model.Week
	PreviousTimeSeconds int64

	// DiffSeconds is current minus previous; negative means faster.
	DiffSeconds int64
}

// Compare picks the most recent week strictly before current's start
// that used the same segment and for which the participant has a
// recorded time. timesByWeek maps week id to the participant's
// total_time_seconds. Returns nil when there is nothing to compare:
// no prior attempt, or no time recorded for the current week.
func Compare(current model.Week, weeks []model.Week, timesByWeek map[string]int64) *Comparison {
	currentTime, ok := timesByWeek[current.ID]
	if !ok {
		return nil
	}

	var prior *model.Week
	for i := range weeks {
		w := weeks[i]
		if w.SegmentID != current.SegmentID || w.StartAt >= current.StartAt {
			continue
		}
		if _, has := timesByWeek[w.ID]; !has {
			continue
		}
		if prior == nil || w.StartAt > prior.StartAt {
			prior = &weeks[i]
		}
	}
	if prior == nil {
		return nil
	}

	prev := timesByWeek[prior.ID]
	return &Comparison{
		PreviousWeek:        *prior,
		PreviousTimeSeconds: prev,
		DiffSeconds:         currentTime - prev,
	}
}
