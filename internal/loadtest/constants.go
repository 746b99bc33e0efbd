package loadtest

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProgressInterval     = time.Second
	PercentageMultiplier = 100
	maxPointsPerGuess    = 200
	maxAirportOffsetDeg  = 10.0
)

// Outcome labels used in progress and stats.
const (
	outcomeScored        = "scored"
	outcomePointsUnavail = "points_unavailable"
	outcomeNoFlight      = "no_flight"
	outcomeRejected      = "rejected"
	outcomeFailed        = "failed"
)
