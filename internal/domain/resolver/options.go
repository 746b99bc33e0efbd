package resolver

import "github.com/okian/skyguess/pkg/logger"

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithSearchAreaDeg sets the half-width in degrees of the query window.
func WithSearchAreaDeg(deg float64) Option {
	return func(r *Resolver) {
		if deg > 0 {
			r.searchAreaDeg = deg
		}
	}
}

// WithMaxRadiusKm sets the distance beyond which candidates are ignored.
func WithMaxRadiusKm(km float64) Option {
	return func(r *Resolver) {
		if km > 0 {
			r.maxRadiusKm = km
		}
	}
}

// WithLogger sets the logger used for resolution traces.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}
