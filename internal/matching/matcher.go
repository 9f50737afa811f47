package matching

import (
	"encoding/json"
	"math"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
)

const (
	earthRadiusKm = 6371.0

	// DefaultTolerance is the largest relative detour (exclusive) a pickup
	// may add to a trip.
	DefaultTolerance = 0.10
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports the 0,0 sentinel used for "no coordinates".
func (p Point) IsZero() bool { return p.Lat == 0 && p.Lng == 0 }

// Matcher decides whether a pickup lies on a trip's route.
type Matcher struct {
	Tolerance float64
}

// NewMatcher returns a matcher with the default 10% tolerance.
func NewMatcher() *Matcher {
	return &Matcher{Tolerance: DefaultTolerance}
}

// Matches reports whether picking up at pickup keeps the detour under the
// tolerance. Trips without coordinates always match.
func (m *Matcher) Matches(source, dest, pickup Point) bool {
	detour, ok := Detour(source, dest, pickup)
	if !ok {
		return true
	}
	return detour < m.Tolerance
}

// Detour returns the relative extra distance of source->pickup->dest over
// source->dest. ok is false when the route is degenerate.
func Detour(source, dest, pickup Point) (detour float64, ok bool) {
	if source.IsZero() || dest.IsZero() {
		return 0, false
	}
	total := HaversineKm(source, dest)
	if total == 0 {
		return 0, false
	}
	leg1 := HaversineKm(source, pickup)
	leg2 := HaversineKm(pickup, dest)
	return ((leg1 + leg2) - total) / total, true
}

// HaversineKm is the great-circle distance between two points.
func HaversineKm(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RouteGeoJSON renders the straight source->dest leg as a GeoJSON
// LineString. Trips without coordinates have no geometry.
func RouteGeoJSON(source, dest Point) (json.RawMessage, error) {
	if source.IsZero() || dest.IsZero() {
		return nil, nil
	}
	line := geom.NewLineStringFlat(geom.XY, []float64{
		source.Lng, source.Lat,
		dest.Lng, dest.Lat,
	})
	b, err := gjson.Marshal(line)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
