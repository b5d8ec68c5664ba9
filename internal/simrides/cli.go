package simrides

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/veloclub/segweek/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sim_rides_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the ride simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Segweek Ride Simulator
======================

Generates synthetic ride observations, submits them against a running
engine and verifies the resulting standings.

Usage:
  go run cmd/sim-rides/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -riders int
        Number of riders to simulate (default 200)
  -week string
        Week id to target (default "w1")
  -segment string
        Segment id the week is ridden on (default "seg-1")
  -laps int
        Required laps per ride (default 2)
  -window-start int
        Week window start, unix seconds
  -window-end int
        Week window end, unix seconds
  -workers int
        Number of concurrent submitters (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for simulation output (default: sim_rides_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate against the default local service
  go run cmd/sim-rides/main.go -window-start 2000 -window-end 3000

  # A bigger field with more submitters
  go run cmd/sim-rides/main.go -riders 2000 -workers 16 -window-start 2000 -window-end 3000
`)
}
