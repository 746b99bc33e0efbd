// Package scoring turns guess distances into points.
package scoring

import (
	"math"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
)

// Default scoring configuration constants.
const (
	defaultDecayKm   = 250.0
	defaultMaxPoints = 100
)

// Scorer awards points that decay exponentially with the distance between a
// guess and the true airport.
type Scorer struct {
	decayKm   float64
	maxPoints int
}

// NewScorer creates a Scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		decayKm:   defaultDecayKm,
		maxPoints: defaultMaxPoints,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreGuess returns floor(maxPoints * exp(-d/decayKm)) where d is the
// distance from guess to truth. The result is in [0, maxPoints].
func (s *Scorer) ScoreGuess(truth, guess geo.Position) int {
	d := geo.DistanceKm(truth, guess)
	if math.IsNaN(d) {
		return 0
	}
	return int(math.Floor(float64(s.maxPoints) * math.Exp(-d/s.decayKm)))
}

// Evaluate scores each requested dimension. A dimension yields 0 when it is
// not requested, when its airport is unknown or when no guess was given.
func (s *Scorer) Evaluate(flight model.Flight, originGuess, destinationGuess *geo.Position, rules model.GameRules) model.Points {
	var p model.Points
	if rules.UseOrigin {
		p.Origin = s.dimension(flight.Origin, originGuess)
	}
	if rules.UseDestination {
		p.Destination = s.dimension(flight.Destination, destinationGuess)
	}
	p.Total = p.Origin + p.Destination
	return p
}

func (s *Scorer) dimension(truth *model.AirportInfo, guess *geo.Position) int {
	if truth == nil || guess == nil {
		return 0
	}
	return s.ScoreGuess(truth.Position, *guess)
}

// PointsAvailable reports whether at least one requested dimension has a
// known airport to score against.
func (s *Scorer) PointsAvailable(flight model.Flight, rules model.GameRules) bool {
	return (rules.UseOrigin && flight.Origin != nil) ||
		(rules.UseDestination && flight.Destination != nil)
}

var defaultScorer = NewScorer()

// ScoreGuess scores with the default decay.
func ScoreGuess(truth, guess geo.Position) int {
	return defaultScorer.ScoreGuess(truth, guess)
}

// EvaluateGuess evaluates with the default scorer.
func EvaluateGuess(flight model.Flight, originGuess, destinationGuess *geo.Position, rules model.GameRules) model.Points {
	return defaultScorer.Evaluate(flight, originGuess, destinationGuess, rules)
}
