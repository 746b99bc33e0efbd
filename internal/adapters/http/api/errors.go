package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// genericServerMessage is the only detail a 5xx response carries.
const genericServerMessage = "The server was unable to process your request"
