package model

import (
	"time"

	"github.com/okian/skyguess/internal/domain/geo"
)

// GameRules selects which guess dimensions are scored.
type GameRules struct {
	UseOrigin      bool `json:"use_origin"`
	UseDestination bool `json:"use_destination"`
}

// Points holds the per-dimension score of one guess.
// Total is always Origin + Destination.
type Points struct {
	Origin      int `json:"origin"`
	Destination int `json:"destination"`
	Total       int `json:"total"`
}

// GuessResult is the outcome of evaluating one guess.
type GuessResult struct {
	Points Points `json:"points"`
	Flight Flight `json:"flight"`
}

// GuessStatus tells the player how a scored guess was accounted.
type GuessStatus string

const (
	StatusSuccess           GuessStatus = "Success"
	StatusAlreadyGuessed    GuessStatus = "AlreadyGuessed"
	StatusPointsUnavailable GuessStatus = "PointsUnavailable"
)

// GuessEvent is published after every evaluated guess.
type GuessEvent struct {
	EventID    string       `json:"event_id"`
	LobbyID    string       `json:"lobby_id,omitempty"`
	PlayerName string       `json:"player_name,omitempty"`
	FlightID   string       `json:"flight_id"`
	Callsign   string       `json:"callsign"`
	Player     geo.Position `json:"player"`
	Points     Points       `json:"points"`
	Status     GuessStatus  `json:"status"`
	TS         time.Time    `json:"ts"`
}

// Lobby is a multiplayer room sharing one rule set.
type Lobby struct {
	ID              string    `json:"lobby_id"`
	Rules           GameRules `json:"rules"`
	CreatedAt       time.Time `json:"created_at"`
	LastInteraction time.Time `json:"last_interaction"`
}

// Player is a lobby member and their accumulated state.
type Player struct {
	ID              string    `json:"player_id"`
	LobbyID         string    `json:"lobby_id"`
	Name            string    `json:"player_name"`
	ConnectionID    string    `json:"connection_id"`
	Points          int       `json:"points"`
	GuessedFlights  []string  `json:"guessed_flights"`
	LastInteraction time.Time `json:"last_interaction"`
}

// PlayerID derives the stable identifier of a player inside a lobby.
func PlayerID(name, lobbyID string) string {
	return name + "@" + lobbyID
}

// HasGuessed reports whether flightID is already in the player's history.
func (p Player) HasGuessed(flightID string) bool {
	for _, id := range p.GuessedFlights {
		if id == flightID {
			return true
		}
	}
	return false
}

// PlayerSummary is the public view of a player broadcast to the lobby.
type PlayerSummary struct {
	LobbyID    string `json:"lobby_id"`
	PlayerName string `json:"player_name"`
	Points     int    `json:"points"`
	GuessCount int    `json:"guess_count"`
}

// Summary returns the broadcastable view of p.
func (p Player) Summary() PlayerSummary {
	return PlayerSummary{
		LobbyID:    p.LobbyID,
		PlayerName: p.Name,
		Points:     p.Points,
		GuessCount: len(p.GuessedFlights),
	}
}
