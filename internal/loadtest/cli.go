package loadtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/skyguess/pkg/logger"
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
		logFile = "load_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Skyguess Load Tool
==================

Fires concurrent singleplayer guesses at a running skyguess service and
checks every answer against the scoring rules.

Usage:
  go run ./cmd/skyguess-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -guesses int
        Number of guesses to generate and submit (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -lat float
        Latitude players are placed around (default 47.45)
  -lon float
        Longitude players are placed around (default 8.56)
  -spread float
        Max player offset from the center, in degrees (default 1)
  -origin
        Also guess the origin airport (default true)
  -destination
        Also guess the destination airport (default true)
  -seed uint
        Generator seed; 0 picks a random one
  -output string
        Write guesses and outcomes to this JSON file
  -log string
        Log file for run output (default: load_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run ./cmd/skyguess-load

  # Hammer a remote instance around Frankfurt
  go run ./cmd/skyguess-load -guesses 5000 -workers 16 -lat 50.03 -lon 8.57 -url http://localhost:8080

  # Replay a previous run
  go run ./cmd/skyguess-load -seed 42 -output run.json
`)
}
