package domain

import "time"

// SessionState is the orchestrator state of a mounted map.
type SessionState string

const (
	StateUnready   SessionState = "unready"
	StateReadyIdle SessionState = "ready_idle"
	StateResolving SessionState = "resolving"
	StateTornDown  SessionState = "torn_down"
)

// Inputs are the two free-text place names supplied by the host UI.
type Inputs struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// MarkerView describes a placed marker.
type MarkerView struct {
	Position Coordinate `json:"position"`
	Label    string     `json:"label"`
}

// RouteView describes the route polyline currently on the map.
type RouteView struct {
	Points          RouteGeometry `json:"points"`
	Color           string        `json:"color"`
	Weight          int           `json:"weight"`
	DistanceMeters  float64       `json:"distance_meters"`
	DurationSeconds float64       `json:"duration_seconds"`
}

// Snapshot is a read-only copy of one map session.
type Snapshot struct {
	ID          string       `json:"id"`
	State       SessionState `json:"state"`
	Language    string       `json:"language"`
	Inputs      Inputs       `json:"inputs"`
	Sequence    uint64       `json:"sequence"`
	Container   *Container   `json:"container,omitempty"`
	Viewport    *Viewport    `json:"viewport,omitempty"`
	Anchor      *MarkerView  `json:"anchor,omitempty"`
	Origin      *MarkerView  `json:"origin,omitempty"`
	Destination *MarkerView  `json:"destination,omitempty"`
	Route       *RouteView   `json:"route,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// EventKind says what part of a session an event reports on.
type EventKind string

const (
	EventOrigin      EventKind = "origin"
	EventDestination EventKind = "destination"
	EventRoute       EventKind = "route"
	EventViewport    EventKind = "viewport"
	EventState       EventKind = "state"
)

// SessionEvent is emitted after each applied mutation of a session.
type SessionEvent struct {
	SessionID string    `json:"session_id"`
	Kind      EventKind `json:"kind"`
	Sequence  uint64    `json:"sequence"`
	Time      time.Time `json:"time"`
	Snapshot  *Snapshot `json:"snapshot"`
}
