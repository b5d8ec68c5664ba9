package simrides

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/veloclub/segweek/pkg/logger"
)

// Lap time distribution, seconds.
const (
	fastLapMin    = 540
	fastLapRange  = 60
	midLapMin     = 600
	midLapRange   = 120
	slowLapMin    = 720
	slowLapRange  = 180
	riderTypeMod  = 4
	prChanceMod   = 5
	extraLapMod   = 3
	shortRideMod  = 10
	lapGapSeconds = 30
)

// Rider type cases.
const (
	caseFastRider = 0
	caseSlowRider = 1
)

func randInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// generateObservations creates one ride per simulated rider. Most rides
// qualify; roughly one in ten stays a lap short to exercise the
// diagnostic path.
func generateObservations(ctx context.Context, config *Config, stats *Stats) []Observation {
	logger.Get().Info(ctx, "generating observations",
		logger.Int("riders", config.NumRiders),
		logger.String("segmentID", config.SegmentID))

	window := config.WindowEnd - config.WindowStart
	if window < 1 {
		window = 1
	}

	observations := make([]Observation, config.NumRiders)
	for i := range observations {
		startAt := config.WindowStart + randInt(window)
		laps := config.RequiredLaps
		switch {
		case randInt(shortRideMod) == 0 && laps > 1:
			laps--
		case randInt(extraLapMod) == 0:
			laps++
		}

		o := Observation{
			ParticipantID:      uuid.New().String(),
			DisplayName:        "Rider " + strconv.Itoa(i+1),
			ExternalActivityID: uuid.New().String(),
			StartAt:            startAt,
			DeviceName:         "sim",
		}
		for lap := 0; lap < laps; lap++ {
			e := Effort{
				SegmentID:      config.SegmentID,
				ElapsedSeconds: generateLapTime(),
				StartAt:        startAt + int64(lap)*lapGapSeconds,
			}
			if randInt(prChanceMod) == 0 {
				one := 1
				e.PRRank = &one
			}
			o.Efforts = append(o.Efforts, e)
		}
		observations[i] = o
	}

	stats.ObservationsGenerated = len(observations)
	logger.Get().Info(ctx, "generated observations", logger.Int("count", len(observations)))
	return observations
}

// generateLapTime draws a lap time from a mixed distribution so the
// leaderboard gets a realistic spread.
func generateLapTime() int64 {
	switch randInt(riderTypeMod) {
	case caseFastRider:
		return fastLapMin + randInt(fastLapRange)
	case caseSlowRider:
		return slowLapMin + randInt(slowLapRange)
	default:
		return midLapMin + randInt(midLapRange)
	}
}
