package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/internal/loadtest"
)

// Default configuration constants.
const (
	defaultNumGuesses = 200
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
	defaultCenterLat  = 47.45
	defaultCenterLon  = 8.56
	defaultSpreadDeg  = 1.0
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numGuesses  = flag.Int("guesses", defaultNumGuesses, "Number of guesses to generate and submit")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		lat         = flag.Float64("lat", defaultCenterLat, "Latitude players are placed around")
		lon         = flag.Float64("lon", defaultCenterLon, "Longitude players are placed around")
		spread      = flag.Float64("spread", defaultSpreadDeg, "Max player offset from the center, in degrees")
		origin      = flag.Bool("origin", true, "Also guess the origin airport")
		destination = flag.Bool("destination", true, "Also guess the destination airport")
		seed        = flag.Uint64("seed", 0, "Generator seed; 0 picks a random one")
		outputFile  = flag.String("output", "", "Write guesses and outcomes to this JSON file")
		logFile     = flag.String("log", "", "Log file for run output (default: load_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := loadtest.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &loadtest.Config{
		BaseURL:    *baseURL,
		NumGuesses: *numGuesses,
		Workers:    *workers,
		Timeout:    *timeout,
		Center:     geo.Position{Lat: *lat, Lon: *lon},
		SpreadDeg:  *spread,
		Rules:      model.GameRules{UseOrigin: *origin, UseDestination: *destination},
		Seed:       *seed,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := loadtest.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
