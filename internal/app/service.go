// Package service wires the guessing game together: flight resolution,
// scoring, lobbies and guess event publishing.
package service

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/skyguess/internal/adapters/mq/queue"
	workerpool "github.com/okian/skyguess/internal/adapters/mq/worker"
	"github.com/okian/skyguess/internal/adapters/repository"
	"github.com/okian/skyguess/internal/domain/dedupe"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/internal/domain/resolver"
	"github.com/okian/skyguess/internal/domain/scoring"
	"github.com/okian/skyguess/pkg/logger"
)

// Feed is the upstream flight source: live listings, details and airports.
type Feed interface {
	resolver.Feed
	FetchAirports(ctx context.Context) ([]model.Airport, error)
}

// Service implements the game operations used by the HTTP and websocket APIs.
type Service struct {
	mu sync.RWMutex

	// Core components
	feed     Feed
	resolver *resolver.Resolver
	scorer   *scoring.Scorer
	deduper  dedupe.Deduper

	// Started components
	store      repository.Store
	ownStore   bool
	eventQueue eventqueue.Queue
	publisher  workerpool.Publisher
	workerPool *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	dedupeSize    int
	searchAreaDeg float64
	maxRadiusKm   float64
	decayKm       float64
	lobbyTTL      time.Duration
	airportsTTL   time.Duration

	airports airportCache

	now          func() time.Time
	newEventID   func() string
	newLobbyID   func() string
	lobbyIDTries int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service over feed. Guess evaluation works right away;
// lobbies and event publishing need Start.
func New(feed Feed, opts ...Option) *Service {
	s := &Service{
		feed:         feed,
		workerCount:  runtime.NumCPU(),
		queueSize:    10000,
		dedupeSize:   50000,
		lobbyTTL:     time.Hour,
		airportsTTL:  24 * time.Hour,
		now:          time.Now,
		newEventID:   uuid.NewString,
		newLobbyID:   randomLobbyID,
		lobbyIDTries: 16,
		logger:       logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.Named("service")
	s.resolver = resolver.New(feed,
		resolver.WithSearchAreaDeg(s.searchAreaDeg),
		resolver.WithMaxRadiusKm(s.maxRadiusKm),
		resolver.WithLogger(s.logger.Named("resolver")),
	)
	s.scorer = scoring.NewScorer(scoring.WithDecayKm(s.decayKm))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start creates the lobby store, the event queue and its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting game service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx,
			repository.WithTTL(s.lobbyTTL),
			repository.WithClock(s.now),
		)
		s.ownStore = true
	}
	if s.publisher == nil {
		s.publisher = workerpool.NewLogPublisher(s.logger)
	}
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.publisher)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "game service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("publisher", s.publisher.Name()),
	)
	return nil
}

// Stop drains pending guess events and releases the started components.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping game service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "event workers did not drain", logger.Error(err))
	}
	if s.ownStore {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
		s.store = nil
		s.ownStore = false
	}

	s.started = false
	s.logger.Info(ctx, "game service stopped")
}

// components returns the started components, or ErrNotStarted.
func (s *Service) components() (repository.Store, eventqueue.Queue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.eventQueue, nil
}

// publish enqueues e for the workers. A full or closed queue drops the
// event; the guess itself has already been accounted.
func (s *Service) publish(ctx context.Context, q eventqueue.Queue, e model.GuessEvent) { //nolint:gocritic // events travel by value
	e.EventID = s.newEventID()
	e.TS = s.now()
	if err := q.Enqueue(ctx, e); err != nil {
		level := s.logger.Warn
		if errors.Is(err, context.Canceled) {
			level = s.logger.Debug
		}
		level(ctx, "guess event dropped",
			logger.String("flight_id", e.FlightID),
			logger.String("lobby_id", e.LobbyID),
			logger.Error(err),
		)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":       s.started,
		"workerCount":   s.workerCount,
		"queueSize":     s.queueSize,
		"dedupeSize":    s.dedupeSize,
		"dedupeEntries": s.deduper.Size(),
		"airports":      s.airports.size(),
	}
	if s.started {
		stats["queueLength"] = s.eventQueue.Len()
		stats["lobbies"] = s.store.Count(ctx)
		stats["publisher"] = s.publisher.Name()
	}
	return stats
}
