package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/skyguess/pkg/logger"
)

// LobbyDependencies defines the interface for lobby reads.
type LobbyDependencies interface {
	LobbyPlayers(ctx context.Context, lobbyID string) ([]Standing, error)
}

// LobbyHandler handles lobby requests.
type LobbyHandler struct {
	deps   LobbyDependencies
	logger logger.Logger
}

// NewLobbyHandler creates a new lobby handler.
func NewLobbyHandler(deps LobbyDependencies, l logger.Logger) *LobbyHandler {
	return &LobbyHandler{deps: deps, logger: l}
}

type lobbyResponse struct {
	LobbyID   string     `json:"lobby_id"`
	Standings []Standing `json:"standings"`
}

// HandleGetLobby handles GET /lobbies/{id} requests.
func (h *LobbyHandler) HandleGetLobby(w http.ResponseWriter, r *http.Request) {
	id := strings.ToUpper(strings.TrimSpace(r.PathValue("id")))
	standings, err := h.deps.LobbyPlayers(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), h.logger, w, "api.get_lobby", err)
		return
	}
	writeJSON(w, http.StatusOK, lobbyResponse{LobbyID: id, Standings: standings})
}
