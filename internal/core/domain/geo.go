package domain

import "math"

// Coordinate is a WGS 84 latitude/longitude pair. Values are passed through
// uninterpreted; only finiteness is ever checked.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsFinite reports whether both components are finite numbers.
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Lat) && !math.IsNaN(c.Lon) && !math.IsInf(c.Lat, 0) && !math.IsInf(c.Lon, 0)
}

// RouteGeometry is an ordered polyline from origin to destination in
// (lat, lon) order.
type RouteGeometry []Coordinate

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Bounds returns the smallest box containing every point of g.
// ok is false for an empty geometry.
func (g RouteGeometry) Bounds() (b Bounds, ok bool) {
	if len(g) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: g[0].Lat, MinLon: g[0].Lon, MaxLat: g[0].Lat, MaxLon: g[0].Lon}
	for _, p := range g[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, true
}

// GeocodeResult is the best match for a place query. A nil *GeocodeResult
// means no match was found, which is not an error.
type GeocodeResult struct {
	Location    Coordinate `json:"location"`
	DisplayName string     `json:"display_name,omitempty"`
}

// RouteResult is a driving route between two coordinates. A nil
// *RouteResult means no route was found.
type RouteResult struct {
	Geometry        RouteGeometry `json:"geometry"`
	DistanceMeters  float64       `json:"distance_meters"`
	DurationSeconds float64       `json:"duration_seconds"`
}
