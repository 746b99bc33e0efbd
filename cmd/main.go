package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/skyguess/internal/adapters/feed/fr24"
	"github.com/okian/skyguess/internal/adapters/http/api"
	"github.com/okian/skyguess/internal/adapters/http/swagger"
	"github.com/okian/skyguess/internal/adapters/http/ws"
	"github.com/okian/skyguess/internal/adapters/mq/kafka"
	"github.com/okian/skyguess/internal/adapters/mq/worker"
	service "github.com/okian/skyguess/internal/app"
	"github.com/okian/skyguess/internal/config"
	"github.com/okian/skyguess/pkg/logger"
	"github.com/okian/skyguess/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	kafkaSetupTimeout      = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	topicPartitions        = 3
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Defaults -> optional file -> env.
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "skyguess stopped with error", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled and then shuts everything down.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	feed := fr24.NewClient(fr24.Config{
		ListURL:     cfg.FeedListURL,
		DetailsURL:  cfg.FeedDetailsURL,
		AirportsURL: cfg.FeedAirportsURL,
		UserAgent:   cfg.FeedUserAgent,
		Timeout:     cfg.FeedTimeout(),
	})

	publisher, closePublisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closePublisher(); err != nil {
			log.Warn(ctx, "event publisher close failed", logger.Error(err))
		}
	}()

	svc := service.New(feed,
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.EventQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithSearchAreaDeg(cfg.SearchAreaDeg),
		service.WithMaxRadiusKm(cfg.MaxRadiusKm),
		service.WithDecayKm(cfg.DecayKm),
		service.WithLobbyTTL(cfg.LobbyTTL()),
		service.WithAirportsTTL(cfg.AirportsTTL()),
		service.WithPublisher(publisher),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}

	hub := ws.NewHub(svc, ws.WithLogger(log))
	go startServiceMetricsUpdater(ctx, svc, hub)

	srv := &http.Server{
		Handler:           newMux(ctx, svc, hub, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		hub.Close()
		svc.Stop(context.Background())
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	hub.Close()
	svc.Stop(shutdownCtx)

	log.Info(ctx, "server stopped")
	return err
}

// newMux registers the docs, the REST API and the websocket endpoint.
func newMux(ctx context.Context, svc *service.Service, hub http.Handler, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, api.WithLogger(log)).Register(ctx, mux)
	mux.Handle("GET /ws", hub)
	return mux
}

// newPublisher returns the Kafka publisher when brokers are configured and
// the log publisher otherwise. The returned func releases it.
func newPublisher(ctx context.Context, cfg *config.Config, log logger.Logger) (worker.Publisher, func() error, error) {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		log.Info(ctx, "no kafka brokers configured; guess events go to the log")
		return worker.NewLogPublisher(log), func() error { return nil }, nil
	}

	setupCtx, cancel := context.WithTimeout(ctx, kafkaSetupTimeout)
	defer cancel()
	if err := kafka.EnsureTopic(setupCtx, brokers[0], cfg.KafkaTopic, topicPartitions); err != nil {
		log.Warn(ctx, "kafka topic setup failed; relying on auto-creation",
			logger.String("topic", cfg.KafkaTopic),
			logger.Error(err),
		)
	}

	p, err := kafka.NewPublisher(brokers, cfg.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	log.Info(ctx, "publishing guess events to kafka",
		logger.Any("brokers", brokers),
		logger.String("topic", cfg.KafkaTopic),
	)
	return p, p.Close, nil
}

// sizer reports the number of live websocket connections.
type sizer interface {
	Size() int
}

// startServiceMetricsUpdater refreshes the service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service, hub sizer) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc, hub)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(ctx context.Context, svc *service.Service, hub sizer) {
	stats := svc.GetStats(ctx)

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workerCount, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workerCount)
	}
	if lobbies, ok := stats["lobbies"].(int); ok {
		metrics.UpdateActiveLobbies(lobbies)
	}
	metrics.UpdateWebsocketConnections(hub.Size())
}
