package layers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mapview/internal/adapters/widget"
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/layers"
	"github.com/samirrijal/mapview/internal/core/ports"
)

type staticSource struct{ w ports.MapWidget }

func (s staticSource) Widget() ports.MapWidget { return s.w }

var style = layers.Style{RouteColor: "#1D64F2", RouteWeight: 4, FitPadding: 40, SingleZoom: 14}

var (
	delfines = domain.Coordinate{Lat: 21.0596, Lon: -86.7797}
	laIsla   = domain.Coordinate{Lat: 21.1106, Lon: -86.7620}
)

func newManager(t *testing.T) (*layers.Manager, ports.MapWidget) {
	t.Helper()
	c := &domain.Container{ID: "map-test", Width: 800, Height: 500}
	w, err := widget.NewFactory(19).Create(c, domain.Viewport{Center: domain.Coordinate{Lat: 21.1619, Lon: -86.8515}, Zoom: 13})
	require.NoError(t, err)
	return layers.New(staticSource{w}, style), w
}

func countKind(w ports.MapWidget, kind domain.LayerKind) int {
	n := 0
	for _, l := range w.Layers() {
		if l.Kind == kind {
			n++
		}
	}
	return n
}

func TestSetOriginMarker_Idempotent(t *testing.T) {
	m, w := newManager(t)

	require.NoError(t, m.SetOriginMarker(&delfines, "Origen: Playa Delfines"))
	require.NoError(t, m.SetOriginMarker(&delfines, "Origen: Playa Delfines"))

	assert.Equal(t, 1, countKind(w, domain.LayerMarker))
	require.NotNil(t, m.Origin())
	assert.Equal(t, delfines, m.Origin().Position)
	assert.Equal(t, "Origen: Playa Delfines", m.Origin().Label)
}

func TestSetMarker_Replaces(t *testing.T) {
	m, w := newManager(t)

	require.NoError(t, m.SetOriginMarker(&delfines, "a"))
	require.NoError(t, m.SetOriginMarker(&laIsla, "b"))

	got := w.Layers()
	require.Len(t, got, 1)
	assert.Equal(t, laIsla, got[0].Marker.Position)
	assert.Equal(t, "b", got[0].Marker.Popup)
}

func TestSetMarker_NilRemoves(t *testing.T) {
	m, w := newManager(t)

	require.NoError(t, m.SetDestinationMarker(&laIsla, "Destino: La Isla"))
	require.NoError(t, m.SetDestinationMarker(nil, ""))

	assert.Empty(t, w.Layers())
	assert.Nil(t, m.Destination())
}

func TestMarkers_Independent(t *testing.T) {
	m, w := newManager(t)

	require.NoError(t, m.SetOriginMarker(&delfines, "o"))
	require.NoError(t, m.SetDestinationMarker(&laIsla, "d"))
	require.NoError(t, m.SetOriginMarker(nil, ""))

	assert.Equal(t, 1, countKind(w, domain.LayerMarker))
	assert.NotNil(t, m.Destination())
}

func TestSetRoute_AddsStyledPolylineAndFits(t *testing.T) {
	m, w := newManager(t)
	route := &domain.RouteResult{
		Geometry:        domain.RouteGeometry{delfines, {Lat: 21.08, Lon: -86.77}, laIsla},
		DistanceMeters:  7200,
		DurationSeconds: 600,
	}

	require.NoError(t, m.SetRoute(route))

	got := w.Layers()
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Polyline)
	assert.Equal(t, "#1D64F2", got[0].Polyline.Style.Color)
	assert.Equal(t, 4, got[0].Polyline.Style.Weight)

	b, _ := route.Geometry.Bounds()
	assert.InDelta(t, b.Center().Lat, w.Viewport().Center.Lat, 1e-9)
	assert.InDelta(t, b.Center().Lon, w.Viewport().Center.Lon, 1e-9)

	view := m.Route()
	require.NotNil(t, view)
	assert.Equal(t, 7200.0, view.DistanceMeters)
	assert.Len(t, view.Points, 3)
}

func TestSetRoute_ReplacesPrevious(t *testing.T) {
	m, w := newManager(t)
	r := &domain.RouteResult{Geometry: domain.RouteGeometry{delfines, laIsla}}

	require.NoError(t, m.SetRoute(r))
	require.NoError(t, m.SetRoute(r))

	assert.Equal(t, 1, countKind(w, domain.LayerPolyline))
}

func TestSetRoute_NilRemovesAndKeepsViewport(t *testing.T) {
	m, w := newManager(t)
	require.NoError(t, m.SetRoute(&domain.RouteResult{Geometry: domain.RouteGeometry{delfines, laIsla}}))
	before := w.Viewport()

	require.NoError(t, m.SetRoute(nil))

	assert.Zero(t, countKind(w, domain.LayerPolyline))
	assert.Equal(t, before, w.Viewport())
	assert.Nil(t, m.Route())
}

func TestSetRoute_EmptyGeometry(t *testing.T) {
	m, w := newManager(t)
	before := w.Viewport()

	require.NoError(t, m.SetRoute(&domain.RouteResult{}))

	assert.Empty(t, w.Layers())
	assert.Equal(t, before, w.Viewport())
}

func TestCenterOnSingle(t *testing.T) {
	m, w := newManager(t)
	require.NoError(t, m.CenterOnSingle(laIsla))

	assert.Equal(t, laIsla, w.Viewport().Center)
	assert.Equal(t, 14, w.Viewport().Zoom)
}

func TestNoWidget(t *testing.T) {
	m := layers.New(staticSource{}, style)

	assert.ErrorIs(t, m.SetOriginMarker(&delfines, "o"), domain.ErrSurfaceUnavailable)
	assert.ErrorIs(t, m.SetRoute(nil), domain.ErrSurfaceUnavailable)
	assert.ErrorIs(t, m.CenterOnSingle(delfines), domain.ErrSurfaceUnavailable)
	m.Clear()
}

func TestClear(t *testing.T) {
	m, w := newManager(t)
	tile := w.AddTileLayer(domain.TileLayer{})
	require.NoError(t, m.SetOriginMarker(&delfines, "o"))
	require.NoError(t, m.SetDestinationMarker(&laIsla, "d"))
	require.NoError(t, m.SetRoute(&domain.RouteResult{Geometry: domain.RouteGeometry{delfines, laIsla}}))

	m.Clear()

	require.Len(t, w.Layers(), 1)
	assert.Equal(t, tile, w.Layers()[0].ID)
	assert.Nil(t, m.Origin())
	assert.Nil(t, m.Destination())
	assert.Nil(t, m.Route())
}
