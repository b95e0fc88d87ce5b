package ports

import "github.com/samirrijal/mapview/internal/core/domain"

// WidgetFactory is the map widget library. A nil factory means the
// platform cannot render maps.
type WidgetFactory interface {
	// Create binds a new widget to container, centered on view.
	Create(container *domain.Container, view domain.Viewport) (MapWidget, error)
}

// MapWidget is one live map instance.
type MapWidget interface {
	AddTileLayer(t domain.TileLayer) domain.LayerID
	AddMarker(m domain.Marker) domain.LayerID
	AddPolyline(p domain.Polyline) domain.LayerID
	// RemoveLayer detaches a layer; it reports false for unknown ids.
	RemoveLayer(id domain.LayerID) bool
	HasLayer(id domain.LayerID) bool
	Layers() []domain.Layer

	SetView(center domain.Coordinate, zoom int)
	// FitBounds moves the viewport so b is visible inside paddingPx margins.
	FitBounds(b domain.Bounds, paddingPx int)
	// InvalidateSize re-reads the container size.
	InvalidateSize()
	Viewport() domain.Viewport

	// Remove destroys the widget and unbinds it from its container.
	Remove()
}
