package loadtest

import (
	"time"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string          // Base URL of the service
	NumGuesses int             // Number of guesses to generate
	Workers    int             // Number of concurrent workers
	Timeout    time.Duration   // HTTP request timeout
	Center     geo.Position    // Players are placed around this point
	SpreadDeg  float64         // Max offset from Center, in degrees
	Rules      model.GameRules // Dimensions every guess plays
	Seed       uint64          // Generator seed; 0 picks a random one
	OutputFile string          // Output file for guesses and outcomes
	LogFile    string          // Log file for run output
	Verbose    bool            // Enable verbose logging
}

// Guess is the POST /guess body.
type Guess struct {
	Player      geo.Position    `json:"player"`
	Origin      *geo.Position   `json:"origin,omitempty"`
	Destination *geo.Position   `json:"destination,omitempty"`
	Rules       model.GameRules `json:"rules"`
}

// Outcome is what the service answered to one guess.
type Outcome struct {
	Guess    Guess             `json:"guess"`
	Code     int               `json:"code"`
	Status   model.GuessStatus `json:"status,omitempty"`
	Points   int               `json:"points"`
	FlightID string            `json:"flight_id,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// guessResponse is the subset of the POST /guess answer the tool reads.
type guessResponse struct {
	Status model.GuessStatus `json:"status"`
	Points model.Points      `json:"points"`
	Flight model.Flight      `json:"flight"`
}

// Stats holds run statistics.
type Stats struct {
	GuessesGenerated int
	GuessesSubmitted int
	Scored           int
	PointsUnavail    int
	NoFlight         int
	Rejected         int
	Failed           int
	TotalPoints      int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
