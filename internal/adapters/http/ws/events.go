package ws

import (
	"github.com/okian/skyguess/internal/adapters/repository"
	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
)

// Client actions.
const (
	actionCreateLobby = "create_lobby"
	actionJoinLobby   = "join_lobby"
	actionHandleGuess = "handle_guess"
	actionPing        = "ping"
)

// Server events.
const (
	eventLobbyJoined   = "lobby_joined"
	eventLobbyUpdate   = "lobby_update"
	eventFlightDetails = "flight_details"
	eventLobbyError    = "lobby_error"
	eventFlightError   = "flight_error"
	eventError         = "error"
)

// inbound is any client message; fields irrelevant to Action are ignored.
type inbound struct {
	Action      string          `json:"action"`
	LobbyID     string          `json:"lobby_id"`
	PlayerName  string          `json:"player_name"`
	Rules       model.GameRules `json:"rules"`
	Player      *geo.Position   `json:"player"`
	Origin      *geo.Position   `json:"origin"`
	Destination *geo.Position   `json:"destination"`
}

type lobbyJoinedEvent struct {
	Event      string                `json:"event"`
	Lobby      string                `json:"lobby"`
	Rules      model.GameRules       `json:"rules"`
	Players    []repository.Standing `json:"players"`
	PlayerName string                `json:"player_name"`
	Score      int                   `json:"score"`
}

type lobbyUpdateEvent struct {
	Event     string                `json:"event"`
	LobbyData []repository.Standing `json:"lobby_data"`
}

type flightDetailsEvent struct {
	Event  string            `json:"event"`
	Status model.GuessStatus `json:"status"`
	Score  int               `json:"score"`
	Points model.Points      `json:"points"`
	Flight model.Flight      `json:"flight"`
}

type errorEvent struct {
	Event   string `json:"event"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}
