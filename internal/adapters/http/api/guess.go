package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/skyguess/internal/app"
	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
)

// maxGuessBody caps POST /guess bodies.
const maxGuessBody = 1 << 16

// GuessDependencies defines the interface for singleplayer guesses.
type GuessDependencies interface {
	Guess(ctx context.Context, req service.GuessRequest) (service.GuessOutcome, error)
}

// GuessHandler handles guess requests.
type GuessHandler struct {
	deps   GuessDependencies
	logger logger.Logger
}

// NewGuessHandler creates a new guess handler.
func NewGuessHandler(deps GuessDependencies, l logger.Logger) *GuessHandler {
	return &GuessHandler{deps: deps, logger: l}
}

// guessRequest mirrors the OpenAPI schema for POST /guess.
type guessRequest struct {
	Player      *geo.Position   `json:"player"`
	Origin      *geo.Position   `json:"origin"`
	Destination *geo.Position   `json:"destination"`
	Rules       model.GameRules `json:"rules"`
}

// HandlePostGuess handles POST /guess requests.
func (h *GuessHandler) HandlePostGuess(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_guess"

	var req guessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGuessBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if req.Player == nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing player", ErrBadRequest))
		return
	}

	out, err := h.deps.Guess(r.Context(), service.GuessRequest{
		Player:      *req.Player,
		Origin:      req.Origin,
		Destination: req.Destination,
		Rules:       req.Rules,
	})
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
