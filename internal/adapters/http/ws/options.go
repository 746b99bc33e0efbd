package ws

import (
	"net/http"
	"time"

	"github.com/okian/skyguess/pkg/logger"
)

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithCheckOrigin sets the upgrade origin check. All origins are allowed by default.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// WithMessageTimeout bounds the service call made for each client message.
func WithMessageTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.messageTimeout = d
		}
	}
}

// WithSendBuffer sets how many outbound messages a connection may queue
// before it is dropped as a slow consumer.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
