package api

import (
	"context"
	"net/http"

	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/pkg/logger"
)

// AirportsDependencies defines the interface for the airport directory.
type AirportsDependencies interface {
	Airports(ctx context.Context) ([]model.Airport, error)
}

// AirportsHandler handles airport directory requests.
type AirportsHandler struct {
	deps   AirportsDependencies
	logger logger.Logger
}

// NewAirportsHandler creates a new airports handler.
func NewAirportsHandler(deps AirportsDependencies, l logger.Logger) *AirportsHandler {
	return &AirportsHandler{deps: deps, logger: l}
}

// HandleGetAirports handles GET /airports requests.
func (h *AirportsHandler) HandleGetAirports(w http.ResponseWriter, r *http.Request) {
	airports, err := h.deps.Airports(r.Context())
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "api.get_airports", err)
		return
	}
	writeJSON(w, http.StatusOK, airports)
}
