// Package repository stores lobbies and their players.
package repository

import (
	"context"
	"time"

	"github.com/okian/skyguess/internal/domain/model"
)

// Standing is one row of a lobby scoreboard.
type Standing struct {
	Rank int `json:"rank"`
	model.PlayerSummary
}

// Store provides read/write access to lobby state.
type Store interface {
	// CreateLobby stores a new lobby. Returns ErrLobbyExists if the id is taken.
	CreateLobby(ctx context.Context, lobby model.Lobby) error
	// GetLobby returns ErrNotFound if the lobby is unknown.
	GetLobby(ctx context.Context, lobbyID string) (model.Lobby, error)
	// TouchLobby records activity so the lobby is not expired.
	TouchLobby(ctx context.Context, lobbyID string, at time.Time) error

	// GetPlayer returns ErrNotFound if the player is unknown.
	GetPlayer(ctx context.Context, playerID string) (model.Player, error)
	// PutPlayer creates or replaces a player. Its lobby must exist.
	PutPlayer(ctx context.Context, player model.Player) error
	// UpdatePlayer applies fn to the stored player atomically and returns the
	// result. Nothing is written if fn fails.
	UpdatePlayer(ctx context.Context, playerID string, fn func(*model.Player) error) (model.Player, error)

	// Standings returns the lobby's players ordered by points desc, then
	// name asc. Equal points share a rank.
	Standings(ctx context.Context, lobbyID string) ([]Standing, error)

	// Count returns the number of lobbies.
	Count(ctx context.Context) int
}
