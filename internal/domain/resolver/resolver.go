// Package resolver finds the in-flight aircraft nearest to a player.
package resolver

import (
	"context"
	"maps"
	"math"
	"slices"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/internal/domain/nested"
	"github.com/okian/skyguess/internal/domain/normalize"
	"github.com/okian/skyguess/pkg/logger"
)

// Default search configuration.
const (
	defaultSearchAreaDeg = 0.2
	defaultMaxRadiusKm   = 120.0
)

// list entry layout: [icao24, lat, lon, ...]
const (
	entryLatIndex = 1
	entryLonIndex = 2
)

// Feed is the live flight source the resolver queries.
type Feed interface {
	// ListFlightsNear returns the flights inside box keyed by feed key.
	// Values that are not positional arrays are metadata.
	ListFlightsNear(ctx context.Context, box geo.BoundingBox) (map[string]any, error)
	// FetchFlightDetails returns the raw details payload for key.
	FetchFlightDetails(ctx context.Context, key string) (any, error)
}

// Resolver picks the closest flight and normalizes its details.
type Resolver struct {
	feed          Feed
	searchAreaDeg float64
	maxRadiusKm   float64
	log           logger.Logger
}

// New creates a Resolver over feed.
func New(feed Feed, opts ...Option) *Resolver {
	r := &Resolver{
		feed:          feed,
		searchAreaDeg: defaultSearchAreaDeg,
		maxRadiusKm:   defaultMaxRadiusKm,
		log:           logger.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type candidate struct {
	key      string
	position geo.Position
	distance float64
}

// FindClosestFlight returns the nearest flight within the maximum radius of
// player. found is false, with a nil error, when nothing qualifies. Feed
// errors are returned as they are.
func (r *Resolver) FindClosestFlight(ctx context.Context, player geo.Position) (model.Flight, bool, error) {
	box := geo.Around(player, r.searchAreaDeg)
	entries, err := r.feed.ListFlightsNear(ctx, box)
	if err != nil {
		return model.Flight{}, false, err
	}

	best, ok := r.closest(entries, player)
	if !ok {
		r.log.Debug(ctx, "no flight within radius",
			logger.String("bounds", box.String()),
			logger.Int("entries", len(entries)),
		)
		return model.Flight{}, false, nil
	}

	raw, err := r.feed.FetchFlightDetails(ctx, best.key)
	if err != nil {
		return model.Flight{}, false, err
	}

	flight, hasPosition := normalize.FlightDetails(raw)
	if !hasPosition {
		flight.Position = best.position
	}
	r.log.Debug(ctx, "closest flight resolved",
		logger.String("key", best.key),
		logger.String("flight_id", flight.ID),
		logger.Float64("distance_km", best.distance),
	)
	return flight, true, nil
}

// closest scans entries in key order so that ties resolve deterministically
// to the first candidate seen.
func (r *Resolver) closest(entries map[string]any, player geo.Position) (candidate, bool) {
	best := candidate{distance: math.Inf(1)}
	found := false
	for _, key := range slices.Sorted(maps.Keys(entries)) {
		pos, ok := entryPosition(entries[key])
		if !ok {
			continue
		}
		d := geo.DistanceKm(player, pos)
		if d > r.maxRadiusKm || !(d < best.distance) {
			continue
		}
		best = candidate{key: key, position: pos, distance: d}
		found = true
	}
	return best, found
}

// entryPosition reads lat/lon out of a positional list entry.
func entryPosition(v any) (geo.Position, bool) {
	if _, ok := v.([]any); !ok {
		return geo.Position{}, false
	}
	lat, latOK := nested.Float(v, entryLatIndex)
	lon, lonOK := nested.Float(v, entryLonIndex)
	if !latOK || !lonOK {
		return geo.Position{}, false
	}
	return geo.Position{Lat: lat, Lon: lon}, true
}
