package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrLobbyExists = errors.New("lobby already exists")
)
