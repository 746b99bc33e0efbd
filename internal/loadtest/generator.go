package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/pkg/logger"
)

// generateGuesses creates config.NumGuesses guesses around config.Center.
// The same seed always yields the same guesses.
func generateGuesses(ctx context.Context, config *Config, stats *Stats) ([]Guess, error) {
	if config.NumGuesses <= 0 {
		return nil, fmt.Errorf("number of guesses must be positive, got %d", config.NumGuesses)
	}
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	logger.Get().Info(ctx, "generating guesses",
		logger.Int("numGuesses", config.NumGuesses),
		logger.Int64("seed", int64(seed)), //nolint:gosec // logged for replay only
	)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // load data, not secrets
	guesses := make([]Guess, config.NumGuesses)
	for i := range guesses {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during guess generation: %w", err)
		}
		guesses[i] = generateSingleGuess(rng, config)
	}

	stats.GuessesGenerated = len(guesses)
	logger.Get().Info(ctx, "generated guesses successfully", logger.Int("count", len(guesses)))
	return guesses, nil
}

// generateSingleGuess places a player near the center and, for each enabled
// rule, an airport guess further out.
func generateSingleGuess(rng *rand.Rand, config *Config) Guess {
	g := Guess{
		Player: clampPosition(geo.Position{
			Lat: config.Center.Lat + offset(rng, config.SpreadDeg),
			Lon: config.Center.Lon + offset(rng, config.SpreadDeg),
		}),
		Rules: config.Rules,
	}
	if config.Rules.UseOrigin {
		p := airportNear(rng, g.Player)
		g.Origin = &p
	}
	if config.Rules.UseDestination {
		p := airportNear(rng, g.Player)
		g.Destination = &p
	}
	return g
}

func airportNear(rng *rand.Rand, p geo.Position) geo.Position {
	return clampPosition(geo.Position{
		Lat: p.Lat + offset(rng, maxAirportOffsetDeg),
		Lon: p.Lon + offset(rng, maxAirportOffsetDeg),
	})
}

// offset returns a uniform value in [-spread, spread).
func offset(rng *rand.Rand, spread float64) float64 {
	return (rng.Float64()*2 - 1) * spread
}

// clampPosition keeps p a valid coordinate.
func clampPosition(p geo.Position) geo.Position {
	p.Lat = min(max(p.Lat, -90), 90)
	for p.Lon > 180 {
		p.Lon -= 360
	}
	for p.Lon < -180 {
		p.Lon += 360
	}
	return p
}
