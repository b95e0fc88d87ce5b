package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/layers"
	"github.com/samirrijal/mapview/internal/core/mapsurface"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
)

// SessionDefaults configure every mounted map.
type SessionDefaults struct {
	Surface          mapsurface.Options
	Style            layers.Style
	Language         string
	Width            int
	Height           int
	OriginLabel      string
	DestinationLabel string
}

// MountRequest describes a new map mount.
type MountRequest struct {
	Inputs   domain.Inputs
	Language string
	Width    int
	Height   int
	// Wait blocks until the first resolution sequence stops or ctx ends.
	Wait bool
}

// SessionService keeps one orchestrator per mounted map.
type SessionService struct {
	geocoder  ports.Geocoder
	router    ports.Router
	factory   ports.WidgetFactory
	publisher ports.EventPublisher
	defaults  SessionDefaults
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Orchestrator
}

// NewSessionService creates a new SessionService. factory and publisher
// may be nil.
func NewSessionService(
	geocoder ports.Geocoder,
	router ports.Router,
	factory ports.WidgetFactory,
	publisher ports.EventPublisher,
	defaults SessionDefaults,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	if defaults.Language == "" {
		defaults.Language = "es"
	}
	return &SessionService{
		geocoder:  geocoder,
		router:    router,
		factory:   factory,
		publisher: publisher,
		defaults:  defaults,
		logger:    logger,
		sessions:  make(map[string]*Orchestrator),
	}
}

// Mount creates a map session, initializes its surface and applies the
// initial inputs. A surface that cannot initialize leaves an empty,
// permanently unready session rather than an error.
func (s *SessionService) Mount(ctx context.Context, req MountRequest) (*domain.Snapshot, error) {
	lang := req.Language
	if lang == "" {
		lang = s.defaults.Language
	}
	if !domain.IsSupportedLanguage(lang) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedLang, lang)
	}

	id := uuid.NewString()
	container := &domain.Container{
		ID:       "map-" + id,
		Width:    orDefault(req.Width, s.defaults.Width),
		Height:   orDefault(req.Height, s.defaults.Height),
		Bordered: true,
	}

	logger := s.logger.With("session", id)
	surface := mapsurface.New(s.factory, s.defaults.Surface, logger)
	o := NewOrchestrator(OrchestratorConfig{
		SessionID:        id,
		Language:         lang,
		OriginLabel:      s.defaults.OriginLabel,
		DestinationLabel: s.defaults.DestinationLabel,
	}, s.geocoder, s.router, surface, layers.New(surface, s.defaults.Style), s.publisher, s.logger)

	s.mu.Lock()
	s.sessions[id] = o
	s.mu.Unlock()
	metrics.ActiveSessions.Inc()

	if err := surface.Initialize(container); err != nil {
		logger.Warn("session mounted without a map", "error", err)
	}

	seq := o.Update(req.Inputs)
	if req.Wait {
		wait(ctx, seq)
	}
	return o.Snapshot(), nil
}

// Update replaces a session's inputs. With wait set it returns after the
// resulting sequence stops or ctx ends.
func (s *SessionService) Update(ctx context.Context, id string, inputs domain.Inputs, waitDone bool) (*domain.Snapshot, error) {
	o, err := s.get(id)
	if err != nil {
		return nil, err
	}
	seq := o.Update(inputs)
	if waitDone {
		wait(ctx, seq)
	}
	return o.Snapshot(), nil
}

// Get returns the snapshot of one session.
func (s *SessionService) Get(id string) (*domain.Snapshot, error) {
	o, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return o.Snapshot(), nil
}

// List returns all sessions, oldest first.
func (s *SessionService) List() []domain.Snapshot {
	s.mu.RLock()
	out := make([]domain.Snapshot, 0, len(s.sessions))
	for _, o := range s.sessions {
		out = append(out, *o.Snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// NextLanguage cycles a session's language and returns the new one.
func (s *SessionService) NextLanguage(id string) (string, error) {
	o, err := s.get(id)
	if err != nil {
		return "", err
	}
	return o.NextLanguage(), nil
}

// SetLanguage sets a session's language.
func (s *SessionService) SetLanguage(id, lang string) error {
	o, err := s.get(id)
	if err != nil {
		return err
	}
	return o.SetLanguage(lang)
}

// Unmount tears a session down and forgets it.
func (s *SessionService) Unmount(id string) error {
	s.mu.Lock()
	o, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	o.Teardown()
	metrics.ActiveSessions.Dec()
	return nil
}

// Count returns the number of mounted sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close unmounts every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Orchestrator)
	s.mu.Unlock()

	for _, o := range all {
		o.Teardown()
		metrics.ActiveSessions.Dec()
	}
	if len(all) > 0 {
		s.logger.Info("sessions closed", "count", len(all))
	}
}

func (s *SessionService) get(id string) (*Orchestrator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	return o, nil
}

func wait(ctx context.Context, seq *Sequence) {
	if seq == nil {
		return
	}
	select {
	case <-seq.Done():
	case <-ctx.Done():
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
