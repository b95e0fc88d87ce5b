package ports

import (
	"context"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// Geocoder resolves free text to the single best matching coordinate.
// Empty queries return (nil, nil) without a request; no match is (nil, nil);
// cancellation wraps domain.ErrCancelled; other failures wrap
// domain.ErrGeocodeFailed.
type Geocoder interface {
	Geocode(ctx context.Context, query, language string) (*domain.GeocodeResult, error)
}

// Router computes a driving route between two resolved coordinates.
// No route is (nil, nil); cancellation wraps domain.ErrCancelled; other
// failures wrap domain.ErrRouteFailed.
type Router interface {
	Route(ctx context.Context, origin, destination domain.Coordinate) (*domain.RouteResult, error)
}

// EventPublisher publishes session events to a message broker.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error
}

// EventSubscriber delivers raw, JSON encoded session events.
type EventSubscriber interface {
	SubscribeSession(sessionID string, handler func(data []byte)) (unsubscribe func() error, err error)
}
