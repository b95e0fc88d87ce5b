package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/mapview/internal/core/domain"
)

func newMap(t *testing.T) (*Map, *domain.Container) {
	t.Helper()
	c := &domain.Container{ID: "map-test", Width: 800, Height: 500}
	w, err := NewFactory(19).Create(c, domain.Viewport{Center: domain.Coordinate{Lat: 21.1619, Lon: -86.8515}, Zoom: 13})
	require.NoError(t, err)
	return w.(*Map), c
}

func TestCreate_BindsContainer(t *testing.T) {
	m, c := newMap(t)
	assert.Equal(t, m.ID(), c.WidgetID)
	assert.Equal(t, 800, m.Viewport().Width)
	assert.Equal(t, 500, m.Viewport().Height)
}

func TestCreate_RejectsBoundContainer(t *testing.T) {
	_, c := newMap(t)
	_, err := NewFactory(19).Create(c, domain.Viewport{})
	assert.Error(t, err)

	c.Reset()
	_, err = NewFactory(19).Create(c, domain.Viewport{})
	assert.NoError(t, err)
}

func TestCreate_NilContainer(t *testing.T) {
	_, err := NewFactory(19).Create(nil, domain.Viewport{})
	assert.ErrorIs(t, err, domain.ErrSurfaceUnavailable)
}

func TestLayers_AddRemove(t *testing.T) {
	m, _ := newMap(t)
	tile := m.AddTileLayer(domain.TileLayer{URLTemplate: "x"})
	mk := m.AddMarker(domain.Marker{Popup: "a"})
	assert.NotEqual(t, tile, mk)
	assert.True(t, m.HasLayer(mk))
	assert.Len(t, m.Layers(), 2)

	assert.True(t, m.RemoveLayer(mk))
	assert.False(t, m.RemoveLayer(mk))
	assert.False(t, m.HasLayer(mk))
	require.Len(t, m.Layers(), 1)
	assert.Equal(t, domain.LayerTile, m.Layers()[0].Kind)
}

func TestAddPolyline_CopiesPoints(t *testing.T) {
	m, _ := newMap(t)
	pts := domain.RouteGeometry{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}
	m.AddPolyline(domain.Polyline{Points: pts})
	pts[0].Lat = 99
	assert.Equal(t, 1.0, m.Layers()[0].Polyline.Points[0].Lat)
}

func TestSetView_ClampsZoom(t *testing.T) {
	m, _ := newMap(t)
	m.SetView(domain.Coordinate{Lat: 1, Lon: 2}, 25)
	assert.Equal(t, 19, m.Viewport().Zoom)
	assert.Equal(t, domain.Coordinate{Lat: 1, Lon: 2}, m.Viewport().Center)
}

func TestFitBounds(t *testing.T) {
	m, _ := newMap(t)
	b := domain.Bounds{MinLat: 21.03, MinLon: -86.85, MaxLat: 21.14, MaxLon: -86.76}
	m.FitBounds(b, 40)

	v := m.Viewport()
	assert.InDelta(t, b.Center().Lat, v.Center.Lat, 1e-9)
	assert.InDelta(t, b.Center().Lon, v.Center.Lon, 1e-9)
	// ~12 km tall box in a 420 px tall area: height bound wins at zoom 12.
	assert.Equal(t, 12, v.Zoom)
}

func TestFitBounds_SinglePoint(t *testing.T) {
	m, _ := newMap(t)
	m.FitBounds(domain.Bounds{MinLat: 1, MinLon: 1, MaxLat: 1, MaxLon: 1}, 40)
	assert.Equal(t, 19, m.Viewport().Zoom)
}

func TestInvalidateSize(t *testing.T) {
	m, c := newMap(t)
	c.Width, c.Height = 1024, 768
	m.InvalidateSize()
	assert.Equal(t, 1024, m.Viewport().Width)
	assert.Equal(t, 768, m.Viewport().Height)
}

func TestRemove_Idempotent(t *testing.T) {
	m, c := newMap(t)
	m.AddMarker(domain.Marker{})
	m.Remove()
	m.Remove()
	assert.True(t, m.Removed())
	assert.Empty(t, m.Layers())
	assert.False(t, c.HasWidget())
}
