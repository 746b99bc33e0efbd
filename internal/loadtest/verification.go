package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"

	"github.com/okian/skyguess/internal/domain/model"
)

// classify maps an outcome onto its stats label.
func classify(out Outcome) string { //nolint:gocritic // outcomes travel by value
	switch {
	case out.Code == http.StatusOK && out.Status == model.StatusPointsUnavailable:
		return outcomePointsUnavail
	case out.Code == http.StatusOK:
		return outcomeScored
	case out.Code == http.StatusNotFound:
		return outcomeNoFlight
	case out.Code == http.StatusBadRequest:
		return outcomeRejected
	default:
		return outcomeFailed
	}
}

// verifyResults checks that every answered guess is consistent with the
// scoring rules and that the service reports itself started.
func verifyResults(ctx context.Context, config *Config, outcomes []Outcome, stats *Stats) error {
	log.Println("Verifying results...")

	if len(outcomes) == 0 {
		return fmt.Errorf("no outcomes to verify")
	}
	if stats.Failed == len(outcomes) {
		return fmt.Errorf("all %d guesses failed", len(outcomes))
	}

	for i := range outcomes {
		if err := verifyOutcome(&outcomes[i]); err != nil {
			return fmt.Errorf("guess %d: %w", i, err)
		}
	}

	svcStats, err := fetchServiceStats(ctx, config)
	if err != nil {
		return err
	}
	if started, _ := svcStats["started"].(bool); !started {
		return fmt.Errorf("service reports started=%v", svcStats["started"])
	}

	displayTopGuesses(outcomes, config.Verbose)
	log.Println("Result verification completed")
	return nil
}

// verifyOutcome checks the invariants of one scored guess.
func verifyOutcome(out *Outcome) error {
	if out.Code != http.StatusOK {
		return nil
	}
	if out.Points < 0 || out.Points > maxPointsPerGuess {
		return fmt.Errorf("points %d outside [0, %d]", out.Points, maxPointsPerGuess)
	}
	if out.FlightID == "" {
		return fmt.Errorf("scored guess without a flight id")
	}
	if !out.Guess.Rules.UseOrigin && !out.Guess.Rules.UseDestination && out.Points != 0 {
		return fmt.Errorf("points %d awarded with no scoring rule enabled", out.Points)
	}
	return nil
}

// fetchServiceStats reads GET /stats.
func fetchServiceStats(ctx context.Context, config *Config) (map[string]any, error) {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/stats")
	if err != nil {
		return nil, fmt.Errorf("stats request failed: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats: HTTP %d: %s", resp.StatusCode, string(body))
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	return out, nil
}

// displayTopGuesses logs the best scoring guesses.
func displayTopGuesses(outcomes []Outcome, verbose bool) {
	scored := make([]Outcome, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Code == http.StatusOK {
			scored = append(scored, out)
		}
	}
	if len(scored) == 0 {
		log.Println("No guess was scored")
		return
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Points > scored[j].Points
	})

	topN := min(10, len(scored))
	log.Printf("Top %d guesses:", topN)
	for i := range topN {
		out := scored[i]
		log.Printf("   %d. %s - %d points (%s)", i+1, out.FlightID, out.Points, out.Status)
	}

	if verbose {
		log.Printf("Points statistics: average %.1f, maximum %d, minimum %d",
			calculateAveragePoints(scored), scored[0].Points, scored[len(scored)-1].Points)
	}
}

// calculateAveragePoints returns the mean points of outcomes.
func calculateAveragePoints(outcomes []Outcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	sum := 0
	for _, out := range outcomes {
		sum += out.Points
	}
	return float64(sum) / float64(len(outcomes))
}
