// Package scoring computes the ranked leaderboard for one week from its
// persisted results. Rank and points are always derived here at read
// time; nothing in the store carries them.
package scoring

import "sort"

// Lap is one stored effort of the counted activity.
type Lap struct {
	EffortIndex    int
	SegmentID      string
	ElapsedSeconds int64
	StartAt        int64
	PRAchieved     bool
}

// Input is one result row joined with what display needs.
type Input struct {
	ParticipantID    string
	DisplayName      string
	ActivityID       string
	TotalTimeSeconds int64

	// AnyPR is true when any effort of the activity carries the upstream
	// PR flag, qualifying lap or not.
	AnyPR bool

	Laps []Lap
}

// Entry is one ranked leaderboard row.
type Entry struct {
	Rank             int
	ParticipantID    string
	DisplayName      string
	TotalTimeSeconds int64
	BasePoints       int
	PRBonus          int
	TotalPoints      int
	PRAchieved       bool
	Laps             []Lap
}

// RankWeek ranks a week's results.
//
// Ordering is total time ascending, ties broken by display name
// ascending; equal times get distinct sequential ranks, not shared ones.
// Base points reward field size: last place scores 1, first place scores
// len(results). The week multiplier scales base plus PR bonus.
func RankWeek(results []Input, multiplier int) []Entry {
	if multiplier < 1 {
		multiplier = 1
	}
	sorted := make([]Input, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalTimeSeconds != sorted[j].TotalTimeSeconds {
			return sorted[i].TotalTimeSeconds < sorted[j].TotalTimeSeconds
		}
		if sorted[i].DisplayName != sorted[j].DisplayName {
			return sorted[i].DisplayName < sorted[j].DisplayName
		}
		return sorted[i].ParticipantID < sorted[j].ParticipantID
	})

	n := len(sorted)
	entries := make([]Entry, n)
	for i, in := range sorted {
		rank := i + 1
		base := n - rank + 1
		bonus := 0
		if in.AnyPR {
			bonus = 1
		}
		entries[i] = Entry{
			Rank:             rank,
			ParticipantID:    in.ParticipantID,
			DisplayName:      in.DisplayName,
			TotalTimeSeconds: in.TotalTimeSeconds,
			BasePoints:       base,
			PRBonus:          bonus,
			TotalPoints:      (base + bonus) * multiplier,
			PRAchieved:       in.AnyPR,
			Laps:             in.Laps,
		}
	}
	return entries
}
