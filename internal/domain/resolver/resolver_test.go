package resolver_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/skyguess/internal/domain/geo"
	"github.com/okian/skyguess/internal/domain/resolver"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeFeed struct {
	entries    map[string]any
	details    map[string]any
	listErr    error
	detailsErr error

	boxes       []geo.BoundingBox
	detailsKeys []string
}

func (f *fakeFeed) ListFlightsNear(_ context.Context, box geo.BoundingBox) (map[string]any, error) {
	f.boxes = append(f.boxes, box)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entries, nil
}

func (f *fakeFeed) FetchFlightDetails(_ context.Context, key string) (any, error) {
	f.detailsKeys = append(f.detailsKeys, key)
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	return f.details[key], nil
}

func entry(lat, lon float64) []any {
	return []any{"4B1812", lat, lon, 270.0, 36000.0}
}

func details(callsign string, trail bool) map[string]any {
	d := map[string]any{
		"identification": map[string]any{"callsign": callsign, "number": map[string]any{"default": "LX1"}},
		"time":           map[string]any{"real": map[string]any{"departure": 1718000000.0}},
		"airport": map[string]any{
			"origin": map[string]any{"name": "Zurich", "position": map[string]any{"latitude": 47.46, "longitude": 8.55}},
		},
	}
	if trail {
		d["trail"] = []any{map[string]any{"lat": 47.01, "lng": 8.02}}
	}
	return d
}

func TestFindClosestFlight(t *testing.T) {
	ctx := context.Background()
	player := geo.Position{Lat: 47.0, Lon: 8.0}

	Convey("Given a feed with several candidates", t, func() {
		feed := &fakeFeed{
			entries: map[string]any{
				"full_count": 12345.0,
				"version":    4.0,
				"stats":      map[string]any{"total": 1.0},
				"far":        entry(47.9, 8.0),
				"near":       entry(47.05, 8.0),
				"broken":     []any{"ABC", "not-a-number", 8.0},
				"short":      []any{"ABC"},
			},
			details: map[string]any{
				"near": details("NEAR1", true),
				"far":  details("FAR1", true),
			},
		}
		r := resolver.New(feed)

		Convey("When resolving the closest flight", func() {
			f, found, err := r.FindClosestFlight(ctx, player)

			Convey("Then the nearest array entry wins and metadata is skipped", func() {
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(feed.detailsKeys, ShouldResemble, []string{"near"})
				So(f.Callsign, ShouldEqual, "NEAR1")
				So(f.ID, ShouldEqual, "NEAR1-LX1-1718000000")
			})

			Convey("Then the trail position is kept", func() {
				So(f.Position, ShouldResemble, geo.Position{Lat: 47.01, Lon: 8.02})
			})

			Convey("Then a single 0.2 degree window is queried", func() {
				So(feed.boxes, ShouldHaveLength, 1)
				So(feed.boxes[0].String(), ShouldEqual, "47.2,46.8,7.8,8.2")
			})
		})
	})

	Convey("Given a details payload with no trail", t, func() {
		feed := &fakeFeed{
			entries: map[string]any{"k1": entry(47.1, 8.1)},
			details: map[string]any{"k1": details("NOTRAIL", false)},
		}

		Convey("Then the list coordinates are backfilled", func() {
			f, found, err := resolver.New(feed).FindClosestFlight(ctx, player)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(f.Position, ShouldResemble, geo.Position{Lat: 47.1, Lon: 8.1})
		})
	})

	Convey("Given candidates only beyond the radius", t, func() {
		// about 121 km due north
		feed := &fakeFeed{entries: map[string]any{"k1": entry(48.087, 8.0)}}

		Convey("Then no flight is found and details are never fetched", func() {
			_, found, err := resolver.New(feed).FindClosestFlight(ctx, player)
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
			So(feed.detailsKeys, ShouldBeEmpty)
		})

		Convey("Then a wider radius option admits them", func() {
			feed.details = map[string]any{"k1": details("WIDE", true)}
			_, found, err := resolver.New(feed, resolver.WithMaxRadiusKm(150)).FindClosestFlight(ctx, player)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
		})
	})

	Convey("Given a player at the origin and two flights 121 km away", t, func() {
		feed := &fakeFeed{entries: map[string]any{
			"version": 3.0,
			"north":   entry(1.087, 0),
			"east":    entry(0, 1.087),
		}}

		Convey("Then no flight is found without error", func() {
			_, found, err := resolver.New(feed).FindClosestFlight(ctx, geo.Position{})
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})
	})

	Convey("Given an empty listing with only metadata", t, func() {
		feed := &fakeFeed{entries: map[string]any{"version": 3.0, "full_count": 0.0}}

		Convey("Then no flight is found", func() {
			_, found, err := resolver.New(feed).FindClosestFlight(ctx, player)
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})
	})

	Convey("Given two candidates at exactly the same distance", t, func() {
		feed := &fakeFeed{
			entries: map[string]any{"b": entry(47.1, 8.0), "a": entry(47.1, 8.0)},
			details: map[string]any{"a": details("A", true), "b": details("B", true)},
		}

		Convey("Then the first key in order wins", func() {
			f, found, err := resolver.New(feed).FindClosestFlight(ctx, player)
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(f.Callsign, ShouldEqual, "A")
		})
	})

	Convey("Given a failing feed", t, func() {
		boom := errors.New("upstream down")

		Convey("When listing fails", func() {
			feed := &fakeFeed{listErr: boom}
			_, found, err := resolver.New(feed).FindClosestFlight(ctx, player)

			Convey("Then the error is returned unchanged", func() {
				So(err, ShouldEqual, boom)
				So(found, ShouldBeFalse)
			})
		})

		Convey("When the details lookup fails", func() {
			feed := &fakeFeed{entries: map[string]any{"k1": entry(47.0, 8.0)}, detailsErr: boom}
			_, found, err := resolver.New(feed).FindClosestFlight(ctx, player)

			Convey("Then the error is returned unchanged", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(found, ShouldBeFalse)
			})
		})
	})

	Convey("Given a custom search area", t, func() {
		feed := &fakeFeed{entries: map[string]any{}}
		_, _, _ = resolver.New(feed, resolver.WithSearchAreaDeg(0.5), resolver.WithSearchAreaDeg(-1)).FindClosestFlight(ctx, player)
		So(feed.boxes[0].North, ShouldAlmostEqual, 47.5)
		So(feed.boxes[0].West, ShouldAlmostEqual, 7.5)
	})
}
