package simrides

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/veloclub/segweek/pkg/logger"
)

// Run executes the complete ride simulation.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting ride simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("weekID", config.WeekID),
		logger.String("segmentID", config.SegmentID),
		logger.Int("riders", config.NumRiders),
		logger.Int("workers", config.Workers))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	observations := generateObservations(ctx, config, stats)
	submitObservations(ctx, config, observations, stats)

	entries, err := fetchLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	if err := verifyStandings(ctx, entries, stats); err != nil {
		return fmt.Errorf("standings verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyStandings sanity-checks the returned leaderboard: ranks are
// sequential and times never decrease down the board.
func verifyStandings(ctx context.Context, entries []Entry, stats *Stats) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d, want %d", i, e.Rank, i+1)
		}
		if i > 0 && e.TotalTimeSeconds < entries[i-1].TotalTimeSeconds {
			return fmt.Errorf("entry %d time %d is faster than the rank above", i, e.TotalTimeSeconds)
		}
	}

	if stats.Qualified > 0 && len(entries) == 0 {
		return fmt.Errorf("%d rides qualified but the leaderboard is empty", stats.Qualified)
	}

	logger.Get().Info(ctx, "standings verified", logger.Int("entries", len(entries)))
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var ridesPerSecond float64
	if stats.Duration > 0 {
		ridesPerSecond = float64(stats.ObservationsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("observationsGenerated", stats.ObservationsGenerated),
		logger.Int("observationsSubmitted", stats.ObservationsSubmitted),
		logger.Int("qualified", stats.Qualified),
		logger.Int("notQualified", stats.NotQualified),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("ridesPerSecond", ridesPerSecond))
}
