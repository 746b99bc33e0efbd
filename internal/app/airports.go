package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
	"github.com/okian/skyguess/pkg/metrics"
)

// airportCache holds the last airport directory fetched from the feed.
type airportCache struct {
	mu        sync.Mutex
	rows      []model.Airport
	fetchedAt time.Time
}

func (c *airportCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// Airports returns the airport directory. It is refetched once the cached
// copy is older than the airports TTL; a failed refetch serves the stale copy.
func (s *Service) Airports(ctx context.Context) ([]model.Airport, error) {
	c := &s.airports
	c.mu.Lock()
	defer c.mu.Unlock()

	now := s.now()
	if c.rows != nil && now.Sub(c.fetchedAt) < s.airportsTTL {
		return slices.Clone(c.rows), nil
	}

	rows, err := s.feed.FetchAirports(ctx)
	if err != nil {
		metrics.RecordAirportsRefresh("error")
		if c.rows == nil {
			s.logger.Error(ctx, "airports fetch failed", logger.Error(err))
			return nil, err
		}
		s.logger.Warn(ctx, "airports refresh failed, serving cached copy",
			logger.Int("airports", len(c.rows)),
			logger.Duration("age", now.Sub(c.fetchedAt)),
			logger.Error(err),
		)
		return slices.Clone(c.rows), nil
	}

	metrics.RecordAirportsRefresh("success")
	if rows == nil {
		rows = []model.Airport{}
	}
	c.rows = rows
	c.fetchedAt = now
	s.logger.Info(ctx, "airports refreshed", logger.Int("airports", len(rows)))
	return slices.Clone(rows), nil
}
