// Package widget is an in-process map widget: it keeps the layer stack and
// viewport a browser map library would hold, so sessions can be driven and
// inspected server-side.
package widget

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
)

const tileSize = 256

// maxMercatorLat is the latitude where Web Mercator is clipped.
const maxMercatorLat = 85.0511287798

var widgetSeq atomic.Uint64

// Factory creates in-memory widgets.
type Factory struct {
	MaxZoom int
}

// NewFactory returns a factory whose widgets never zoom past maxZoom.
func NewFactory(maxZoom int) *Factory {
	return &Factory{MaxZoom: maxZoom}
}

// Create binds a new Map to container. A container still bound to a live
// widget is rejected; callers must Reset stale state first.
func (f *Factory) Create(container *domain.Container, view domain.Viewport) (ports.MapWidget, error) {
	if container == nil {
		return nil, fmt.Errorf("create widget: %w", domain.ErrSurfaceUnavailable)
	}
	if container.HasWidget() {
		return nil, fmt.Errorf("create widget: container %q already bound to %s", container.ID, container.WidgetID)
	}

	m := &Map{
		id:        fmt.Sprintf("w%d", widgetSeq.Add(1)),
		container: container,
		maxZoom:   f.MaxZoom,
		view:      view,
	}
	if m.view.Width == 0 && m.view.Height == 0 {
		m.view.Width, m.view.Height = container.Width, container.Height
	}
	container.WidgetID = m.id
	return m, nil
}

// Map is a single in-memory widget. It is safe for concurrent use.
type Map struct {
	mu        sync.RWMutex
	id        string
	container *domain.Container
	maxZoom   int
	view      domain.Viewport
	layers    []domain.Layer
	nextID    domain.LayerID
	removed   bool
}

// ID returns the identifier written to the container.
func (m *Map) ID() string { return m.id }

// Removed reports whether Remove has been called.
func (m *Map) Removed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.removed
}

func (m *Map) add(l domain.Layer) domain.LayerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	l.ID = m.nextID
	m.layers = append(m.layers, l)
	return l.ID
}

func (m *Map) AddTileLayer(t domain.TileLayer) domain.LayerID {
	return m.add(domain.Layer{Kind: domain.LayerTile, Tile: &t})
}

func (m *Map) AddMarker(mk domain.Marker) domain.LayerID {
	return m.add(domain.Layer{Kind: domain.LayerMarker, Marker: &mk})
}

func (m *Map) AddPolyline(p domain.Polyline) domain.LayerID {
	p.Points = append(domain.RouteGeometry(nil), p.Points...)
	return m.add(domain.Layer{Kind: domain.LayerPolyline, Polyline: &p})
}

func (m *Map) RemoveLayer(id domain.LayerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.layers {
		if l.ID == id {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Map) HasLayer(id domain.LayerID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.layers {
		if l.ID == id {
			return true
		}
	}
	return false
}

// Layers returns the attached layers in insertion order.
func (m *Map) Layers() []domain.Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Layer, len(m.layers))
	copy(out, m.layers)
	return out
}

func (m *Map) SetView(center domain.Coordinate, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Center = center
	m.view.Zoom = m.clampZoom(zoom)
}

// FitBounds centers on b at the largest zoom where b fits inside the
// viewport minus paddingPx on every side.
func (m *Map) FitBounds(b domain.Bounds, paddingPx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view.Center = b.Center()
	m.view.Zoom = m.clampZoom(fitZoom(b, m.view.Width-2*paddingPx, m.view.Height-2*paddingPx, m.maxZoom))
}

// InvalidateSize re-reads the container size.
func (m *Map) InvalidateSize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.container != nil {
		m.view.Width, m.view.Height = m.container.Width, m.container.Height
	}
}

func (m *Map) Viewport() domain.Viewport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

// Remove drops every layer and unbinds the container. Repeated calls are
// no-ops.
func (m *Map) Remove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.removed = true
	m.layers = nil
	if m.container != nil && m.container.WidgetID == m.id {
		m.container.Reset()
	}
	m.container = nil
}

func (m *Map) clampZoom(z int) int {
	if z < 0 {
		return 0
	}
	if m.maxZoom > 0 && z > m.maxZoom {
		return m.maxZoom
	}
	return z
}

// fitZoom returns the Web Mercator zoom at which b spans at most width x
// height pixels. A degenerate box fits at maxZoom.
func fitZoom(b domain.Bounds, width, height, maxZoom int) int {
	if width <= 0 || height <= 0 {
		return 0
	}
	dx := math.Abs(b.MaxLon-b.MinLon) / 360
	dy := math.Abs(mercatorY(b.MaxLat) - mercatorY(b.MinLat))
	if dx == 0 && dy == 0 {
		return maxZoom
	}

	zoom := maxZoom
	if dx > 0 {
		zoom = min(zoom, int(math.Floor(math.Log2(float64(width)/(dx*tileSize)))))
	}
	if dy > 0 {
		zoom = min(zoom, int(math.Floor(math.Log2(float64(height)/(dy*tileSize)))))
	}
	return max(zoom, 0)
}

// mercatorY projects lat onto [0,1] world units.
func mercatorY(lat float64) float64 {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	rad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
}
