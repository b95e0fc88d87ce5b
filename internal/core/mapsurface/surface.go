// Package mapsurface owns the lifecycle of one map widget: creation bound
// to a container, the base tile layer and anchor marker, the deferred size
// recalculation and teardown.
package mapsurface

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/ports"
)

// Options configure the initial view and base layers.
type Options struct {
	Center      domain.Coordinate
	Zoom        int
	Tile        domain.TileLayer
	AnchorLabel string
	// ResizeDelay is how long after creation the widget re-reads its
	// container size.
	ResizeDelay time.Duration
}

// Surface is the map widget of a single mount. Its zero value is not
// usable; construct with New.
type Surface struct {
	factory ports.WidgetFactory
	opts    Options
	logger  *slog.Logger

	mu          sync.Mutex
	widget      ports.MapWidget
	container   *domain.Container
	tileID      domain.LayerID
	anchorID    domain.LayerID
	initialized bool
	tornDown    bool
	resize      *time.Timer
	ready       chan struct{}
	onReady     []func()
}

// New creates a surface. A nil factory means the platform has no map
// widget library; Initialize will then fail with ErrSurfaceUnavailable.
func New(factory ports.WidgetFactory, opts Options, logger *slog.Logger) *Surface {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surface{
		factory: factory,
		opts:    opts,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Initialize creates the widget inside container, attaches the tile layer
// and anchor marker, then signals ready. It runs at most once per surface.
// Failures are logged and returned; the surface stays without a map.
func (s *Surface) Initialize(container *domain.Container) error {
	s.mu.Lock()

	if s.factory == nil || container == nil {
		s.mu.Unlock()
		s.logger.Warn("map surface unavailable",
			"has_widget_library", s.factory != nil,
			"has_container", container != nil,
		)
		return domain.ErrSurfaceUnavailable
	}
	if s.initialized || s.tornDown {
		s.mu.Unlock()
		s.logger.Warn("map surface already initialized", "container", container.ID)
		return domain.ErrAlreadyInitialized
	}

	// A fast remount can leave the previous widget's binding on the element.
	if container.HasWidget() {
		s.logger.Debug("clearing stale widget state", "container", container.ID, "widget", container.WidgetID)
		container.Reset()
	}

	w, err := s.factory.Create(container, domain.Viewport{
		Center: s.opts.Center,
		Zoom:   s.opts.Zoom,
		Width:  container.Width,
		Height: container.Height,
	})
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("create map widget", "container", container.ID, "error", err)
		return fmt.Errorf("initialize map surface: %w: %w", domain.ErrSurfaceUnavailable, err)
	}

	s.widget = w
	s.container = container
	s.initialized = true
	s.tileID = w.AddTileLayer(s.opts.Tile)
	s.anchorID = w.AddMarker(domain.Marker{Position: s.opts.Center, Popup: s.opts.AnchorLabel})

	callbacks := s.onReady
	s.onReady = nil
	close(s.ready)
	s.mu.Unlock()

	s.logger.Info("map surface ready", "container", container.ID)
	for _, fn := range callbacks {
		fn()
	}

	s.mu.Lock()
	if !s.tornDown {
		s.resize = time.AfterFunc(s.opts.ResizeDelay, s.invalidateSize)
	}
	s.mu.Unlock()
	return nil
}

func (s *Surface) invalidateSize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown || s.widget == nil {
		return
	}
	s.widget.InvalidateSize()
}

// Teardown destroys the widget and drops every reference. It is safe to
// call repeatedly and before Initialize.
func (s *Surface) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tornDown {
		return
	}
	s.tornDown = true
	s.onReady = nil
	if s.resize != nil {
		s.resize.Stop()
		s.resize = nil
	}
	if s.widget != nil {
		s.widget.Remove()
		s.logger.Info("map surface torn down", "container", s.container.ID)
	}
	s.widget = nil
	s.container = nil
	s.tileID, s.anchorID = 0, 0
}

// OnReady registers fn to run once the surface is ready. If it already
// is, fn runs immediately. Callbacks run without the surface lock held.
func (s *Surface) OnReady(fn func()) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.ready:
		s.mu.Unlock()
		fn()
		return
	default:
	}
	s.onReady = append(s.onReady, fn)
	s.mu.Unlock()
}

// Ready is closed after a successful Initialize.
func (s *Surface) Ready() <-chan struct{} {
	return s.ready
}

// Widget returns the live widget, or nil before Initialize and after
// Teardown.
func (s *Surface) Widget() ports.MapWidget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widget
}

// Container returns the bound container, or nil.
func (s *Surface) Container() *domain.Container {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container
}

// Anchor describes the reference marker while the widget is live.
func (s *Surface) Anchor() *domain.MarkerView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.widget == nil || !s.widget.HasLayer(s.anchorID) {
		return nil
	}
	return &domain.MarkerView{Position: s.opts.Center, Label: s.opts.AnchorLabel}
}

// TornDown reports whether Teardown has run.
func (s *Surface) TornDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tornDown
}
