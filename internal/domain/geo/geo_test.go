package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     Position
		expected float64
		delta    float64
	}{
		{
			name:     "same point",
			a:        Position{Lat: 47.376888, Lon: 8.541694},
			b:        Position{Lat: 47.376888, Lon: 8.541694},
			expected: 0,
			delta:    0,
		},
		{
			name:     "one degree of longitude on the equator",
			a:        Position{Lat: 0, Lon: 0},
			b:        Position{Lat: 0, Lon: 1},
			expected: EarthRadiusKm * math.Pi / 180,
			delta:    1e-9,
		},
		{
			name:     "pole to pole",
			a:        Position{Lat: 90, Lon: 0},
			b:        Position{Lat: -90, Lon: 0},
			expected: EarthRadiusKm * math.Pi,
			delta:    1e-6,
		},
		{
			name:     "across the antimeridian",
			a:        Position{Lat: 0, Lon: 179.5},
			b:        Position{Lat: 0, Lon: -179.5},
			expected: EarthRadiusKm * math.Pi / 180,
			delta:    1e-6,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, DistanceKm(tc.a, tc.b), tc.delta)
		})
	}
}

func TestDistanceKmIsSymmetric(t *testing.T) {
	points := []Position{
		{Lat: 47.376888, Lon: 8.541694},
		{Lat: 46.004, Lon: 8.910},
		{Lat: 48.122, Lon: 7.829},
		{Lat: 40, Lon: 20},
		{Lat: -33.9, Lon: 151.2},
	}
	for _, a := range points {
		for _, b := range points {
			assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a))
		}
		assert.Zero(t, DistanceKm(a, a))
	}
}

func TestDistanceKmPropagatesNaN(t *testing.T) {
	d := DistanceKm(Position{Lat: math.NaN(), Lon: 0}, Position{Lat: 0, Lon: 0})
	assert.True(t, math.IsNaN(d))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name  string
		pos   Position
		valid bool
	}{
		{name: "origin", pos: Position{}, valid: true},
		{name: "corners", pos: Position{Lat: -90, Lon: 180}, valid: true},
		{name: "latitude too high", pos: Position{Lat: 90.1, Lon: 0}},
		{name: "longitude too low", pos: Position{Lat: 0, Lon: -180.5}},
		{name: "NaN latitude", pos: Position{Lat: math.NaN(), Lon: 0}},
		{name: "infinite longitude", pos: Position{Lat: 0, Lon: math.Inf(1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.pos.Validate()
			if tc.valid {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPosition))
		})
	}
}

func TestAround(t *testing.T) {
	box := Around(Position{Lat: 0, Lon: 0}, 0.5)
	assert.Equal(t, BoundingBox{North: 0.5, South: -0.5, East: 0.5, West: -0.5}, box)
	assert.Equal(t, "0.5,-0.5,-0.5,0.5", box.String())

	box = Around(Position{Lat: 10, Lon: -20}, 1)
	assert.Equal(t, "11,9,-21,-19", box.String())
}
