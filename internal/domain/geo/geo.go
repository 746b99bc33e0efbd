// Package geo holds the coordinate primitives shared by the resolver and scoring.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// EarthRadiusKm is the sphere radius used for all distances.
const EarthRadiusKm = 6378.0

// ErrInvalidPosition reports a coordinate that is non-finite or out of range.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a latitude/longitude pair in degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate fails fast on coordinates that would yield a meaningless distance.
func (p Position) Validate() error {
	switch {
	case math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0):
		return fmt.Errorf("%w: latitude is not finite", ErrInvalidPosition)
	case math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0):
		return fmt.Errorf("%w: longitude is not finite", ErrInvalidPosition)
	case math.Abs(p.Lat) > 90:
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidPosition, p.Lat)
	case math.Abs(p.Lon) > 180:
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidPosition, p.Lon)
	}
	return nil
}

// DistanceKm returns the haversine great-circle distance between a and b.
// NaN inputs yield NaN.
func DistanceKm(a, b Position) float64 {
	phi1 := radians(a.Lat)
	phi2 := radians(b.Lat)
	dPhi := radians(b.Lat - a.Lat)
	dLambda := radians(b.Lon - a.Lon)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// BoundingBox is a rectangular lat/lon search window.
type BoundingBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// Around returns the window extending deg degrees on every side of p.
func Around(p Position, deg float64) BoundingBox {
	return BoundingBox{
		North: p.Lat + deg,
		South: p.Lat - deg,
		East:  p.Lon + deg,
		West:  p.Lon - deg,
	}
}

// String renders the box as "north,south,west,east", the order the feed expects.
func (b BoundingBox) String() string {
	return format(b.North) + "," + format(b.South) + "," + format(b.West) + "," + format(b.East)
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
