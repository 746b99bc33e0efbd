package service

import (
	"time"

	workerpool "github.com/okian/skyguess/internal/adapters/mq/worker"
	"github.com/okian/skyguess/internal/adapters/repository"
	"github.com/okian/skyguess/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of event publishing workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the guess event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the guess deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSearchAreaDeg sets the half-width of the flight query window.
func WithSearchAreaDeg(deg float64) Option {
	return func(s *Service) { s.searchAreaDeg = deg }
}

// WithMaxRadiusKm sets the distance beyond which flights are ignored.
func WithMaxRadiusKm(km float64) Option {
	return func(s *Service) { s.maxRadiusKm = km }
}

// WithDecayKm sets the scoring decay distance.
func WithDecayKm(km float64) Option {
	return func(s *Service) { s.decayKm = km }
}

// WithLobbyTTL sets how long an idle lobby is kept.
func WithLobbyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.lobbyTTL = ttl
		}
	}
}

// WithAirportsTTL sets how long the airport directory is cached.
func WithAirportsTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.airportsTTL = ttl
		}
	}
}

// WithStore replaces the in-memory lobby store. The caller owns its lifecycle.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPublisher sets where guess events are published. Defaults to the log.
func WithPublisher(p workerpool.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLobbyIDGenerator replaces the random lobby id source.
func WithLobbyIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newLobbyID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
