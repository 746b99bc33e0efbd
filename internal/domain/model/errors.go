package model

import "errors"

// Sentinel error kinds shared by the resolver, the orchestrator and adapters.
var (
	// ErrNoFlightFound means no aircraft was within the search radius. It is an
	// expected outcome, not a fault.
	ErrNoFlightFound = errors.New("no flights were found in your location")
	// ErrUpstreamFailure wraps transport and decoding failures of the flight feed.
	ErrUpstreamFailure = errors.New("flight feed request failed")
	// ErrInvalidInput reports malformed positions or rules.
	ErrInvalidInput = errors.New("invalid input")
)
