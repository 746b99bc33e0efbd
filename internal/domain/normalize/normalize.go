// Package normalize maps raw flight feed payloads onto canonical models.
package normalize

import (
	"strings"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/model"
	"github.com/okian/skyguess/internal/domain/nested"
)

// idSeparator joins the parts of a flight id.
const idSeparator = "-"

// FlightDetails converts a details payload into a Flight. The second result
// reports whether the payload carried a live position; when it is false the
// returned Position is the zero value and the caller must supply one.
func FlightDetails(raw any) (model.Flight, bool) {
	callsign := nested.StringOr(raw, "identification", "callsign")
	number := nested.StringOr(raw, "identification", "number", "default")

	f := model.Flight{
		ID:                   FlightID(raw),
		FlightNumber:         number,
		Callsign:             callsign,
		Airline:              nested.StringOr(raw, "airline", "name"),
		AircraftType:         nested.StringOr(raw, "aircraft", "model", "text"),
		AircraftRegistration: nested.StringOr(raw, "aircraft", "registration"),
		ImageURL:             nested.OptString(raw, "aircraft", "images", "medium", 0, "src"),
		Origin:               airport(raw, "origin"),
		Destination:          airport(raw, "destination"),
	}

	lat, latOK := nested.Float(raw, "trail", 0, "lat")
	lon, lonOK := nested.Float(raw, "trail", 0, "lng")
	if latOK && lonOK {
		f.Position = geo.Position{Lat: lat, Lon: lon}
		return f, true
	}
	return f, false
}

// FlightID derives the identifier that stays stable across lookups of the
// same physical flight: callsign, flight number and raw departure time.
func FlightID(raw any) string {
	return strings.Join([]string{
		nested.Text(raw, "identification", "callsign"),
		nested.Text(raw, "identification", "number", "default"),
		nested.Text(raw, "time", "real", "departure"),
	}, idSeparator)
}

// airport parses airport.<which> only when that object is present and
// carries both coordinates. An airport without a position cannot be scored.
func airport(raw any, which string) *model.AirportInfo {
	data, ok := nested.Object(raw, "airport", which)
	if !ok {
		return nil
	}
	lat, latOK := nested.Float(data, "position", "latitude")
	lon, lonOK := nested.Float(data, "position", "longitude")
	if !latOK || !lonOK {
		return nil
	}
	return &model.AirportInfo{
		Name:     nested.StringOr(data, "name"),
		City:     nested.OptString(data, "position", "region", "city"),
		IATA:     nested.StringOr(data, "code", "iata"),
		ICAO:     nested.StringOr(data, "code", "icao"),
		Position: geo.Position{Lat: lat, Lon: lon},
	}
}

// Airports converts the airport directory payload. Rows without a name or
// without both coordinates are dropped.
func Airports(raw any) []model.Airport {
	rows, ok := nested.Lookup(raw, "rows")
	if !ok {
		return nil
	}
	list, ok := rows.([]any)
	if !ok {
		return nil
	}
	out := make([]model.Airport, 0, len(list))
	for _, row := range list {
		name, ok := nested.String(row, "name")
		if !ok || name == "" {
			continue
		}
		lat, latOK := nested.Float(row, "lat")
		lon, lonOK := nested.Float(row, "lon")
		if !latOK || !lonOK {
			continue
		}
		out = append(out, model.Airport{
			Name:     name,
			IATA:     nested.StringOr(row, "iata"),
			ICAO:     nested.StringOr(row, "icao"),
			Country:  nested.StringOr(row, "country"),
			Position: geo.Position{Lat: lat, Lon: lon},
		})
	}
	return out
}
