// Package model contains domain models passed between layers.
package model

import "github.com/okian/skyguess/internal/domain/geo"

// AirportInfo is one endpoint of a flight's route.
type AirportInfo struct {
	Name     string       `json:"name"`
	City     *string      `json:"city"`
	IATA     string       `json:"iata"`
	ICAO     string       `json:"icao"`
	Position geo.Position `json:"position"`
}

// Flight is the canonical record produced from a feed details payload.
// Origin and Destination are independently optional.
type Flight struct {
	ID                   string       `json:"id"`
	FlightNumber         string       `json:"flight_number"`
	Callsign             string       `json:"callsign"`
	Airline              string       `json:"airline"`
	AircraftType         string       `json:"aircraft_type"`
	AircraftRegistration string       `json:"aircraft_registration"`
	ImageURL             *string      `json:"image_src"`
	Origin               *AirportInfo `json:"origin"`
	Destination          *AirportInfo `json:"destination"`
	Position             geo.Position `json:"position"`
}

// Airport is a row of the feed's airport directory.
type Airport struct {
	Name     string       `json:"name"`
	IATA     string       `json:"iata"`
	ICAO     string       `json:"icao"`
	Country  string       `json:"country"`
	Position geo.Position `json:"position"`
}
