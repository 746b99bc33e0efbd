package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "SKYGUESS_"
	envConfig = envPrefix + "CONFIG"
)

var (
	// ErrInvalidConfig marks a setting that failed Validate.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a file, env or decoding failure in Load.
	ErrLoadConfig = errors.New("load config failed")
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SKYGUESS_CONFIG is set
//  3. env (prefix SKYGUESS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// SKYGUESS_MAX_RADIUS_KM -> max_radius_km, matching the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.FeedTimeoutMS <= 0:
		return fmt.Errorf("%w: feed_timeout_ms must be positive", ErrInvalidConfig)
	case c.SearchAreaDeg <= 0:
		return fmt.Errorf("%w: search_area_deg must be positive", ErrInvalidConfig)
	case c.MaxRadiusKm <= 0:
		return fmt.Errorf("%w: max_radius_km must be positive", ErrInvalidConfig)
	case c.DecayKm <= 0:
		return fmt.Errorf("%w: decay_km must be positive", ErrInvalidConfig)
	case c.DedupeSize < 0, c.EventQueueSize < 0, c.WorkerCount < 0:
		return fmt.Errorf("%w: dedupe_size, queue_size and worker_count must not be negative", ErrInvalidConfig)
	case c.LobbyTTLMinutes < 0, c.AirportsTTLMinutes < 0:
		return fmt.Errorf("%w: ttl minutes must not be negative", ErrInvalidConfig)
	case len(c.Brokers()) > 0 && c.KafkaTopic == "":
		return fmt.Errorf("%w: kafka_topic is required with kafka_brokers", ErrInvalidConfig)
	}
	return nil
}
