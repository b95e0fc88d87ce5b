package domain

// LayerID is the handle a map widget returns for an attached layer.
type LayerID uint64

// LayerKind identifies what a layer draws.
type LayerKind string

const (
	LayerTile     LayerKind = "tile"
	LayerMarker   LayerKind = "marker"
	LayerPolyline LayerKind = "polyline"
)

// TileLayer is a raster base layer.
type TileLayer struct {
	URLTemplate string `json:"url_template"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"max_zoom"`
}

// Marker is a point layer with optional popup text.
type Marker struct {
	Position Coordinate `json:"position"`
	Popup    string     `json:"popup,omitempty"`
}

// PolylineStyle controls how a polyline is stroked.
type PolylineStyle struct {
	Color  string `json:"color"`
	Weight int    `json:"weight"`
}

// Polyline is a line layer.
type Polyline struct {
	Points RouteGeometry `json:"points"`
	Style  PolylineStyle `json:"style"`
}

// Layer is one attached layer as reported by a widget. Exactly one of
// Tile, Marker or Polyline is set, matching Kind.
type Layer struct {
	ID       LayerID    `json:"id"`
	Kind     LayerKind  `json:"kind"`
	Tile     *TileLayer `json:"tile,omitempty"`
	Marker   *Marker    `json:"marker,omitempty"`
	Polyline *Polyline  `json:"polyline,omitempty"`
}

// Viewport is the visible region of a map.
type Viewport struct {
	Center Coordinate `json:"center"`
	Zoom   int        `json:"zoom"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
}

// Container is the host element a map widget is bound to. WidgetID is set
// by the widget library while a widget is attached and may be left behind
// by a previous mount.
type Container struct {
	ID       string `json:"id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bordered bool   `json:"bordered"`
	WidgetID string `json:"-"`
}

// HasWidget reports whether some widget is (or was) bound to the container.
func (c *Container) HasWidget() bool {
	return c.WidgetID != ""
}

// Reset clears any widget state left on the container.
func (c *Container) Reset() {
	c.WidgetID = ""
}
