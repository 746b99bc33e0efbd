// Package loadtest drives a running skyguess service with concurrent
// singleplayer guesses and checks the answers.
package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/skyguess/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete load run.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting skyguess load run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("guesses", config.NumGuesses),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Float64("centerLat", config.Center.Lat),
		logger.Float64("centerLon", config.Center.Lon),
		logger.Float64("spreadDeg", config.SpreadDeg),
		logger.Bool("useOrigin", config.Rules.UseOrigin),
		logger.Bool("useDestination", config.Rules.UseDestination),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate guesses
	guesses, err := generateGuesses(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("guess generation failed: %w", err)
	}

	// Step 3: Submit guesses concurrently
	outcomes := submitGuesses(ctx, config, guesses, stats)

	// Step 4: Verify results
	if err := verifyResults(ctx, config, outcomes, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 5: Save outcomes
	if config.OutputFile != "" {
		if err := saveOutcomesToFile(ctx, config.OutputFile, outcomes); err != nil {
			logger.Get().Warn(ctx, "failed to save outcomes to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "load run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 is healthy; the body is the Prometheus exposition.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveOutcomesToFile writes outcomes as a JSON array.
func saveOutcomesToFile(ctx context.Context, filename string, outcomes []Outcome) error {
	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcomes); err != nil {
		return fmt.Errorf("failed to write outcomes: %w", err)
	}

	logger.Get().Info(ctx, "outcomes saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var scoredRate, guessesPerSecond float64

	if stats.GuessesSubmitted > 0 {
		scoredRate = float64(stats.Scored+stats.PointsUnavail) / float64(stats.GuessesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		guessesPerSecond = float64(stats.GuessesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("guessesGenerated", stats.GuessesGenerated),
		logger.Int("guessesSubmitted", stats.GuessesSubmitted),
		logger.Int("scored", stats.Scored),
		logger.Int("pointsUnavailable", stats.PointsUnavail),
		logger.Int("noFlight", stats.NoFlight),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("totalPoints", stats.TotalPoints),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("scoredRate", scoredRate),
		logger.Float64("guessesPerSecond", guessesPerSecond))
}
