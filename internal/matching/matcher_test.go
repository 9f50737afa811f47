package matching

import (
	"encoding/json"
	"math"
	"testing"
)

var (
	bangalore = Point{Lat: 12.97, Lng: 77.59}
	chennai   = Point{Lat: 13.08, Lng: 80.27}
)

func TestHaversineKm(t *testing.T) {
	t.Parallel()

	d := HaversineKm(bangalore, chennai)
	if d < 285 || d > 295 {
		t.Errorf("Bangalore->Chennai = %.1f km, want ~290", d)
	}
	if HaversineKm(bangalore, bangalore) != 0 {
		t.Error("distance to self should be zero")
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	// Midpoint of the route, pushed ~200 km north (perpendicular).
	offAxis := Point{Lat: 13.03 + 1.8, Lng: 78.93}
	// Roughly on the straight line, a third of the way along.
	onAxis := Point{Lat: 13.007, Lng: 78.48}

	tests := []struct {
		name         string
		source, dest Point
		pickup       Point
		want         bool
	}{
		{"pickup at source", bangalore, chennai, bangalore, true},
		{"pickup at destination", bangalore, chennai, chennai, true},
		{"pickup on the way", bangalore, chennai, onAxis, true},
		{"far off axis", bangalore, chennai, offAxis, false},
		{"source sentinel", Point{}, chennai, offAxis, true},
		{"destination sentinel", bangalore, Point{}, offAxis, true},
		{"zero length route", bangalore, bangalore, offAxis, true},
	}

	m := NewMatcher()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Matches(tt.source, tt.dest, tt.pickup); got != tt.want {
				d, _ := Detour(tt.source, tt.dest, tt.pickup)
				t.Errorf("Matches() = %v, want %v (detour %.3f)", got, tt.want, d)
			}
		})
	}
}

func TestDetourAtSourceIsZero(t *testing.T) {
	t.Parallel()

	d, ok := Detour(bangalore, chennai, bangalore)
	if !ok {
		t.Fatal("Detour() ok = false for a real route")
	}
	if math.Abs(d) > 1e-9 {
		t.Errorf("detour = %v, want 0", d)
	}
}

func TestToleranceIsStrict(t *testing.T) {
	t.Parallel()

	d, _ := Detour(bangalore, chennai, Point{Lat: 13.5, Lng: 78.9})
	m := &Matcher{Tolerance: d}
	if m.Matches(bangalore, chennai, Point{Lat: 13.5, Lng: 78.9}) {
		t.Error("a detour equal to the tolerance must not match")
	}
}

func TestRouteGeoJSON(t *testing.T) {
	t.Parallel()

	raw, err := RouteGeoJSON(bangalore, chennai)
	if err != nil {
		t.Fatalf("RouteGeoJSON() error = %v", err)
	}
	var got struct {
		Type        string      `json:"type"`
		Coordinates [][]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "LineString" || len(got.Coordinates) != 2 {
		t.Fatalf("got %+v, want a two-point LineString", got)
	}
	if got.Coordinates[0][0] != bangalore.Lng || got.Coordinates[0][1] != bangalore.Lat {
		t.Errorf("first coordinate = %v, want lng/lat of source", got.Coordinates[0])
	}

	if raw, _ := RouteGeoJSON(Point{}, chennai); raw != nil {
		t.Errorf("sentinel route = %s, want nil", raw)
	}
}
