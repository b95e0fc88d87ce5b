package http

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/mapview/internal/core/domain"
)

func point(c domain.Coordinate) orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

func markerFeature(role string, m *domain.MarkerView) *geojson.Feature {
	f := geojson.NewFeature(point(m.Position))
	f.Properties["role"] = role
	f.Properties["label"] = m.Label
	return f
}

// SnapshotGeoJSON renders a session's visible layers as a FeatureCollection
// in (lon, lat) order: the anchor, origin and destination markers as points
// and the route as a line string. The collection bbox is the route's bound
// when a route is drawn.
func SnapshotGeoJSON(s *domain.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{
		"session_id": s.ID,
		"state":      string(s.State),
		"sequence":   s.Sequence,
	}

	if s.Anchor != nil {
		fc.Append(markerFeature("anchor", s.Anchor))
	}
	if s.Origin != nil {
		fc.Append(markerFeature("origin", s.Origin))
	}
	if s.Destination != nil {
		fc.Append(markerFeature("destination", s.Destination))
	}

	if r := s.Route; r != nil && len(r.Points) > 0 {
		ls := make(orb.LineString, 0, len(r.Points))
		for _, p := range r.Points {
			ls = append(ls, point(p))
		}
		f := geojson.NewFeature(ls)
		f.Properties["role"] = "route"
		f.Properties["color"] = r.Color
		f.Properties["weight"] = r.Weight
		f.Properties["distance_meters"] = r.DistanceMeters
		f.Properties["duration_seconds"] = r.DurationSeconds
		fc.Append(f)
		fc.BBox = geojson.NewBBox(ls.Bound())
	}

	return fc
}
