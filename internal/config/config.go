// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Zero sizes and URLs defer to the defaults of the component they configure.
// - Errors are wrapped with this package's sentinel errors.
package config

import (
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Feed endpoints. Empty values use the feed client's built-in endpoints.
	FeedListURL     string `koanf:"feed_list_url"`
	FeedDetailsURL  string `koanf:"feed_details_url"`
	FeedAirportsURL string `koanf:"feed_airports_url"`
	FeedUserAgent   string `koanf:"feed_user_agent"`
	// FeedTimeoutMS bounds every feed request.
	FeedTimeoutMS int `koanf:"feed_timeout_ms"`

	// SearchAreaDeg is the half-width of the nearby-flights query window.
	SearchAreaDeg float64 `koanf:"search_area_deg"`
	// MaxRadiusKm is the distance beyond which flights are ignored.
	MaxRadiusKm float64 `koanf:"max_radius_km"`
	// DecayKm is the scoring decay distance.
	DecayKm float64 `koanf:"decay_km"`

	// DedupeSize sets the size of the guess deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`
	// EventQueueSize bounds the in-memory guess event queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of event publishing workers.
	WorkerCount int `koanf:"worker_count"`

	// KafkaBrokers is a comma separated broker list. Empty publishes guess
	// events to the log instead.
	KafkaBrokers string `koanf:"kafka_brokers"`
	KafkaTopic   string `koanf:"kafka_topic"`

	LobbyTTLMinutes    int `koanf:"lobby_ttl_minutes"`
	AirportsTTLMinutes int `koanf:"airports_ttl_minutes"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		FeedTimeoutMS:      10_000,
		SearchAreaDeg:      0.2,
		MaxRadiusKm:        120,
		DecayKm:            250,
		DedupeSize:         50_000,
		EventQueueSize:     10_000,
		KafkaTopic:         "skyguess.guesses",
		LobbyTTLMinutes:    60,
		AirportsTTLMinutes: 24 * 60,
	}
}

// Brokers splits KafkaBrokers, dropping empty entries.
func (c *Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// FeedTimeout returns FeedTimeoutMS as a duration.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.FeedTimeoutMS) * time.Millisecond
}

// LobbyTTL returns LobbyTTLMinutes as a duration.
func (c *Config) LobbyTTL() time.Duration {
	return time.Duration(c.LobbyTTLMinutes) * time.Minute
}

// AirportsTTL returns AirportsTTLMinutes as a duration.
func (c *Config) AirportsTTL() time.Duration {
	return time.Duration(c.AirportsTTLMinutes) * time.Minute
}
