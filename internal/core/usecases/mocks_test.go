package usecases_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/mapview/internal/core/domain"
)

// --- Mock Geocoder ---

type mockGeocoder struct {
	mu      sync.Mutex
	calls   []string
	langs   []string
	geocode func(ctx context.Context, query string) (*domain.GeocodeResult, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, query, language string) (*domain.GeocodeResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, query)
	m.langs = append(m.langs, language)
	m.mu.Unlock()
	if m.geocode != nil {
		return m.geocode(ctx, query)
	}
	return nil, nil
}

func (m *mockGeocoder) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockGeocoder) Languages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.langs...)
}

// places answers from a fixed table and reports no match otherwise.
func places(table map[string]domain.Coordinate) func(context.Context, string) (*domain.GeocodeResult, error) {
	return func(_ context.Context, q string) (*domain.GeocodeResult, error) {
		c, ok := table[q]
		if !ok {
			return nil, nil
		}
		return &domain.GeocodeResult{Location: c, DisplayName: q}, nil
	}
}

// --- Mock Router ---

type mockRouter struct {
	mu    sync.Mutex
	calls int
	route func(ctx context.Context, o, d domain.Coordinate) (*domain.RouteResult, error)
}

func (m *mockRouter) Route(ctx context.Context, o, d domain.Coordinate) (*domain.RouteResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.route != nil {
		return m.route(ctx, o, d)
	}
	return nil, nil
}

func (m *mockRouter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func straightRoute(_ context.Context, o, d domain.Coordinate) (*domain.RouteResult, error) {
	mid := domain.Coordinate{Lat: (o.Lat + d.Lat) / 2, Lon: (o.Lon + d.Lon) / 2}
	return &domain.RouteResult{Geometry: domain.RouteGeometry{o, mid, d}, DistanceMeters: 7200, DurationSeconds: 660}, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.SessionEvent
	err    error
}

func (m *mockPublisher) PublishSessionEvent(_ context.Context, evt *domain.SessionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *evt)
	return m.err
}

func (m *mockPublisher) Events() []domain.SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SessionEvent(nil), m.events...)
}

func (m *mockPublisher) Kinds(seq uint64) []string {
	var out []string
	for _, e := range m.Events() {
		if e.Sequence == seq {
			out = append(out, fmt.Sprint(e.Kind))
		}
	}
	return out
}
