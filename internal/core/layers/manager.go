// Package layers owns the origin marker, destination marker and route
// polyline of one map session.
package layers

import (
	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
)

// WidgetSource yields the live widget, or nil when there is none.
type WidgetSource interface {
	Widget() ports.MapWidget
}

// Style holds the fixed route styling and viewport parameters.
type Style struct {
	RouteColor  string
	RouteWeight int
	FitPadding  int
	SingleZoom  int
}

type markerHandle struct {
	id   domain.LayerID
	view domain.MarkerView
}

type routeHandle struct {
	id   domain.LayerID
	view domain.RouteView
}

// Manager is the single writer of session layers. It is not safe for
// concurrent use; the orchestrator serializes all calls.
type Manager struct {
	src   WidgetSource
	style Style

	origin      *markerHandle
	destination *markerHandle
	route       *routeHandle
}

// New returns a manager drawing on the widget provided by src.
func New(src WidgetSource, style Style) *Manager {
	return &Manager{src: src, style: style}
}

func (m *Manager) widget() (ports.MapWidget, error) {
	w := m.src.Widget()
	if w == nil {
		return nil, domain.ErrSurfaceUnavailable
	}
	return w, nil
}

// SetOriginMarker replaces the origin marker. A nil coord leaves none.
func (m *Manager) SetOriginMarker(coord *domain.Coordinate, label string) error {
	return m.setMarker(&m.origin, coord, label)
}

// SetDestinationMarker replaces the destination marker. A nil coord leaves
// none.
func (m *Manager) SetDestinationMarker(coord *domain.Coordinate, label string) error {
	return m.setMarker(&m.destination, coord, label)
}

func (m *Manager) setMarker(slot **markerHandle, coord *domain.Coordinate, label string) error {
	w, err := m.widget()
	if err != nil {
		return err
	}
	if *slot != nil {
		w.RemoveLayer((*slot).id)
		*slot = nil
	}
	if coord == nil {
		return nil
	}
	id := w.AddMarker(domain.Marker{Position: *coord, Popup: label})
	*slot = &markerHandle{id: id, view: domain.MarkerView{Position: *coord, Label: label}}
	return nil
}

// SetRoute replaces the route polyline and fits the viewport to it. A nil
// or empty route removes the polyline and leaves the viewport alone.
func (m *Manager) SetRoute(route *domain.RouteResult) error {
	w, err := m.widget()
	if err != nil {
		return err
	}
	if m.route != nil {
		w.RemoveLayer(m.route.id)
		m.route = nil
	}
	if route == nil || len(route.Geometry) == 0 {
		return nil
	}

	points := append(domain.RouteGeometry(nil), route.Geometry...)
	id := w.AddPolyline(domain.Polyline{
		Points: points,
		Style:  domain.PolylineStyle{Color: m.style.RouteColor, Weight: m.style.RouteWeight},
	})
	m.route = &routeHandle{id: id, view: domain.RouteView{
		Points:          points,
		Color:           m.style.RouteColor,
		Weight:          m.style.RouteWeight,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
	}}

	if len(points) == 1 {
		w.SetView(points[0], m.style.SingleZoom)
		return nil
	}
	b, _ := points.Bounds()
	w.FitBounds(b, m.style.FitPadding)
	return nil
}

// CenterOnSingle recenters on coord at the fixed single-point zoom.
func (m *Manager) CenterOnSingle(coord domain.Coordinate) error {
	w, err := m.widget()
	if err != nil {
		return err
	}
	w.SetView(coord, m.style.SingleZoom)
	return nil
}

// Clear removes every owned layer that is still attached and forgets all
// handles.
func (m *Manager) Clear() {
	if w := m.src.Widget(); w != nil {
		for _, h := range []*markerHandle{m.origin, m.destination} {
			if h != nil {
				w.RemoveLayer(h.id)
			}
		}
		if m.route != nil {
			w.RemoveLayer(m.route.id)
		}
	}
	m.origin, m.destination, m.route = nil, nil, nil
}

// Origin describes the origin marker, or nil.
func (m *Manager) Origin() *domain.MarkerView { return m.origin.viewCopy() }

// Destination describes the destination marker, or nil.
func (m *Manager) Destination() *domain.MarkerView { return m.destination.viewCopy() }

// Route describes the route polyline, or nil.
func (m *Manager) Route() *domain.RouteView {
	if m.route == nil {
		return nil
	}
	v := m.route.view
	v.Points = append(domain.RouteGeometry(nil), v.Points...)
	return &v
}

func (h *markerHandle) viewCopy() *domain.MarkerView {
	if h == nil {
		return nil
	}
	v := h.view
	return &v
}
