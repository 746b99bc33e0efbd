package service

import (
	"errors"
	"fmt"

	"github.com/okian/skyguess/internal/domain/model"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrLobbyNotFound     = errors.New("lobby not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrLobbyIDsExhausted = errors.New("could not allocate a lobby id")

	// ErrInvalidName wraps model.ErrInvalidInput.
	ErrInvalidName = fmt.Errorf("%w: name must be 1-20 letters, digits, spaces or apostrophes", model.ErrInvalidInput)
)
