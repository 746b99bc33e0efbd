package scoring

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithDecayKm sets the distance over which points fall by a factor of e.
func WithDecayKm(km float64) Option {
	return func(s *Scorer) {
		if km > 0 {
			s.decayKm = km
		}
	}
}

// WithMaxPoints sets the score of a perfect guess.
func WithMaxPoints(points int) Option {
	return func(s *Scorer) {
		if points > 0 {
			s.maxPoints = points
		}
	}
}
