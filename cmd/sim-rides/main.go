package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/veloclub/segweek/internal/simrides"
)

// Default configuration constants.
const (
	defaultRiders     = 200
	defaultLaps       = 2
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		riders      = flag.Int("riders", defaultRiders, "Number of riders to simulate")
		weekID      = flag.String("week", "w1", "Week id to target")
		segmentID   = flag.String("segment", "seg-1", "Segment id the week is ridden on")
		laps        = flag.Int("laps", defaultLaps, "Required laps per ride")
		windowStart = flag.Int64("window-start", 0, "Week window start, unix seconds")
		windowEnd   = flag.Int64("window-end", 0, "Week window end, unix seconds")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile     = flag.String("log", "", "Log file for simulation output (default: sim_rides_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simrides.ShowHelp()
		return
	}

	if err := simrides.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simrides.Config{
		BaseURL:      *baseURL,
		NumRiders:    *riders,
		WeekID:       *weekID,
		SegmentID:    *segmentID,
		RequiredLaps: *laps,
		WindowStart:  *windowStart,
		WindowEnd:    *windowEnd,
		Workers:      *workers,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	if err := simrides.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		return
	}
}
