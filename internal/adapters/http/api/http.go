// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/skyguess/internal/adapters/repository"
	service "github.com/okian/skyguess/internal/app"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	GuessDependencies
	AirportsDependencies
	LobbyDependencies
	StatsProvider
}

// Server wires HTTP routes for the game API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	guessHandler    *GuessHandler
	airportsHandler *AirportsHandler
	lobbyHandler    *LobbyHandler

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{logger: logger.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("api")

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.guessHandler = NewGuessHandler(deps, s.logger)
	s.airportsHandler = NewAirportsHandler(deps, s.logger)
	s.lobbyHandler = NewLobbyHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /guess", MetricsMiddleware(s.guessHandler.HandlePostGuess, "guess"))
	mux.HandleFunc("GET /airports", MetricsMiddleware(s.airportsHandler.HandleGetAirports, "airports"))
	mux.HandleFunc("GET /lobbies/{id}", MetricsMiddleware(s.lobbyHandler.HandleGetLobby, "lobbies"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Standing mirrors one scoreboard row.
type Standing = repository.Standing

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service errors onto responses. Anything unexpected
// is logged in full and answered with a generic 500.
func writeServiceError(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrNoFlightFound):
		writeError(w, http.StatusNotFound, "no_flight", model.ErrNoFlightFound)
	case errors.Is(err, service.ErrLobbyNotFound):
		writeError(w, http.StatusNotFound, "not_found", service.ErrLobbyNotFound)
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "internal_error",
			Message: genericServerMessage,
		})
	}
}
