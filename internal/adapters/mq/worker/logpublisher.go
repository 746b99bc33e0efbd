package worker

import (
	"context"

	"github.com/okian/skyguess/pkg/logger"
)

// LogPublisher writes events to the log. It is used when no broker is
// configured.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses the default one.
func NewLogPublisher(l logger.Logger) *LogPublisher {
	if l == nil {
		l = logger.Default()
	}
	return &LogPublisher{logger: l.Named("events")}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error { //nolint:gocritic // events travel by value
	p.logger.Info(ctx, "guess event",
		logger.String("event_id", e.EventID),
		logger.String("lobby_id", e.LobbyID),
		logger.String("player", e.PlayerName),
		logger.String("flight_id", e.FlightID),
		logger.Int("points", e.Points.Total),
		logger.String("status", string(e.Status)),
	)
	return nil
}

func (p *LogPublisher) Name() string { return "log" }
