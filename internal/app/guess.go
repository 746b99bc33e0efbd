package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
	"github.com/okian/skyguess/pkg/metrics"
)

// GuessRequest is one guess about the flight closest to Player.
// A nil Origin or Destination scores 0 in that dimension.
type GuessRequest struct {
	Player      geo.Position    `json:"player"`
	Origin      *geo.Position   `json:"origin,omitempty"`
	Destination *geo.Position   `json:"destination,omitempty"`
	Rules       model.GameRules `json:"rules"`
}

// GuessOutcome is a scored guess and how it was accounted.
type GuessOutcome struct {
	model.GuessResult
	Status model.GuessStatus `json:"status"`
}

// validate checks the player position and the guesses the rules score.
func (r GuessRequest) validate() error { //nolint:gocritic // request travels by value
	if err := r.Player.Validate(); err != nil {
		return fmt.Errorf("%w: player: %w", model.ErrInvalidInput, err)
	}
	if r.Rules.UseOrigin && r.Origin != nil {
		if err := r.Origin.Validate(); err != nil {
			return fmt.Errorf("%w: origin guess: %w", model.ErrInvalidInput, err)
		}
	}
	if r.Rules.UseDestination && r.Destination != nil {
		if err := r.Destination.Validate(); err != nil {
			return fmt.Errorf("%w: destination guess: %w", model.ErrInvalidInput, err)
		}
	}
	return nil
}

// MakeGuess resolves the flight closest to the player and scores the guess
// against its route. It persists nothing.
func (s *Service) MakeGuess(ctx context.Context, req GuessRequest) (model.GuessResult, error) { //nolint:gocritic // request travels by value
	if err := req.validate(); err != nil {
		return model.GuessResult{}, err
	}

	flight, found, err := s.resolver.FindClosestFlight(ctx, req.Player)
	if err != nil {
		s.logger.Error(ctx, "flight lookup failed",
			logger.Float64("lat", req.Player.Lat),
			logger.Float64("lon", req.Player.Lon),
			logger.Error(err),
		)
		return model.GuessResult{}, err
	}
	if !found {
		metrics.RecordNoFlight()
		s.logger.Debug(ctx, "no flight near player",
			logger.Float64("lat", req.Player.Lat),
			logger.Float64("lon", req.Player.Lon),
		)
		return model.GuessResult{}, model.ErrNoFlightFound
	}

	return model.GuessResult{
		Points: s.scorer.Evaluate(flight, req.Origin, req.Destination, req.Rules),
		Flight: flight,
	}, nil
}

// Guess is a singleplayer guess: it is scored, counted and published but
// not stored.
func (s *Service) Guess(ctx context.Context, req GuessRequest) (GuessOutcome, error) { //nolint:gocritic // request travels by value
	_, q, err := s.components()
	if err != nil {
		return GuessOutcome{}, err
	}

	res, err := s.MakeGuess(ctx, req)
	if err != nil {
		return GuessOutcome{}, err
	}

	out := GuessOutcome{GuessResult: res, Status: model.StatusSuccess}
	if !s.scorer.PointsAvailable(res.Flight, req.Rules) {
		out.Status = model.StatusPointsUnavailable
	}
	metrics.RecordGuess(string(out.Status), res.Points.Total)

	s.publish(ctx, q, model.GuessEvent{
		FlightID: res.Flight.ID,
		Callsign: res.Flight.Callsign,
		Player:   req.Player,
		Points:   res.Points,
		Status:   out.Status,
	})
	return out, nil
}

// isExpected reports whether err is a user-facing outcome rather than a fault.
func isExpected(err error) bool {
	return errors.Is(err, model.ErrNoFlightFound) || errors.Is(err, model.ErrInvalidInput)
}
