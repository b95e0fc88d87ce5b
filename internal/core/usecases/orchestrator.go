package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/mapview/internal/core/domain"
	"github.com/samirrijal/mapview/internal/core/layers"
	"github.com/samirrijal/mapview/internal/core/mapsurface"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
	"github.com/samirrijal/mapview/internal/pkg/telemetry"
)

// SequenceOutcome is how a resolution sequence ended.
type SequenceOutcome string

const (
	SequenceRunning   SequenceOutcome = ""
	SequenceCompleted SequenceOutcome = metrics.OutcomeCompleted
	SequenceCancelled SequenceOutcome = metrics.OutcomeCancelled
)

// Sequence is one geocode, geocode, route pass. Only the current sequence
// of an orchestrator may mutate its layers.
type Sequence struct {
	id       uint64
	inputs   domain.Inputs
	language string
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	outcome  SequenceOutcome
}

// ID is the sequence number within its session.
func (s *Sequence) ID() uint64 { return s.id }

// Inputs are the texts the sequence resolves.
func (s *Sequence) Inputs() domain.Inputs { return s.inputs }

// Done is closed when the sequence has stopped.
func (s *Sequence) Done() <-chan struct{} { return s.done }

// Outcome is valid once Done is closed.
func (s *Sequence) Outcome() SequenceOutcome {
	select {
	case <-s.done:
		return s.outcome
	default:
		return SequenceRunning
	}
}

// OrchestratorConfig holds per-session settings.
type OrchestratorConfig struct {
	SessionID string
	Language  string
	// OriginLabel and DestinationLabel prefix the marker popups.
	OriginLabel      string
	DestinationLabel string
}

// Orchestrator reacts to origin/destination text changes and drives the
// geocoder, router and layer manager of one mounted map.
type Orchestrator struct {
	cfg       OrchestratorConfig
	geocoder  ports.Geocoder
	router    ports.Router
	surface   *mapsurface.Surface
	layers    *layers.Manager
	publisher ports.EventPublisher
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       domain.SessionState
	language    string
	inputs      domain.Inputs
	origin      *domain.Coordinate
	destination *domain.Coordinate
	lastSeq     uint64
	current     *Sequence
	createdAt   time.Time
	updatedAt   time.Time
}

// NewOrchestrator wires an orchestrator to surface. It stays Unready until
// the surface signals ready. publisher may be nil.
func NewOrchestrator(
	cfg OrchestratorConfig,
	geocoder ports.Geocoder,
	router ports.Router,
	surface *mapsurface.Surface,
	lm *layers.Manager,
	publisher ports.EventPublisher,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if !domain.IsSupportedLanguage(cfg.Language) {
		cfg.Language = domain.Languages[0]
	}
	now := time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:       cfg,
		geocoder:  geocoder,
		router:    router,
		surface:   surface,
		layers:    lm,
		publisher: publisher,
		logger:    logger.With("session", cfg.SessionID),
		ctx:       ctx,
		cancel:    cancel,
		state:     domain.StateUnready,
		language:  cfg.Language,
		createdAt: now,
		updatedAt: now,
	}
	surface.OnReady(o.onReady)
	return o
}

func (o *Orchestrator) onReady() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != domain.StateUnready {
		return
	}
	o.state = domain.StateReadyIdle
	o.touchLocked()
	o.publishLocked(domain.EventState, 0)
	o.startLocked()
}

// Update sets the origin and destination texts. Any change supersedes the
// in-flight sequence. It returns the sequence now resolving the inputs, or
// nil when nothing runs (not ready yet, both texts empty, torn down).
func (o *Orchestrator) Update(inputs domain.Inputs) *Sequence {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == domain.StateTornDown {
		return nil
	}
	if inputs == o.inputs {
		return o.current
	}
	o.inputs = inputs
	o.touchLocked()

	if o.current != nil {
		o.current.cancel()
		o.current = nil
	}
	if o.state == domain.StateUnready {
		// Runs once the surface is ready.
		return nil
	}
	return o.startLocked()
}

func (o *Orchestrator) startLocked() *Sequence {
	if strings.TrimSpace(o.inputs.Origin) == "" && strings.TrimSpace(o.inputs.Destination) == "" {
		o.setStateLocked(domain.StateReadyIdle, 0)
		return nil
	}

	o.lastSeq++
	ctx, cancel := context.WithCancel(o.ctx)
	seq := &Sequence{
		id:       o.lastSeq,
		inputs:   o.inputs,
		language: o.language,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	o.current = seq
	o.setStateLocked(domain.StateResolving, seq.id)

	go o.run(seq)
	return seq
}

func (o *Orchestrator) run(seq *Sequence) {
	defer close(seq.done)
	defer seq.cancel()

	start := time.Now()
	ctx, span := telemetry.Tracer().Start(seq.ctx, telemetry.SpanSequence, trace.WithAttributes(
		telemetry.AttrSessionID.String(o.cfg.SessionID),
		telemetry.AttrSequence.Int64(int64(seq.id)),
		telemetry.AttrLanguage.String(seq.language),
	))
	defer span.End()

	outcome := o.resolve(ctx, seq)
	seq.outcome = outcome

	span.SetAttributes(telemetry.AttrOutcome.String(string(outcome)))
	metrics.SequencesTotal.WithLabelValues(string(outcome)).Inc()
	metrics.SequenceDuration.Observe(time.Since(start).Seconds())

	o.mu.Lock()
	if o.current == seq {
		o.current = nil
		o.setStateLocked(domain.StateReadyIdle, seq.id)
	}
	o.mu.Unlock()

	o.logger.Debug("sequence finished", "sequence", seq.id, "outcome", outcome, "duration", time.Since(start))
}

// resolve runs origin, destination and route steps in order and stops at
// the first sign of supersession.
func (o *Orchestrator) resolve(ctx context.Context, seq *Sequence) SequenceOutcome {
	if !o.resolveEndpoint(ctx, seq, true) {
		return SequenceCancelled
	}
	if !o.resolveEndpoint(ctx, seq, false) {
		return SequenceCancelled
	}
	if !o.resolveRoute(ctx, seq) {
		return SequenceCancelled
	}
	return SequenceCompleted
}

// resolveEndpoint geocodes one input and updates its marker. It reports
// false once seq is no longer current.
func (o *Orchestrator) resolveEndpoint(ctx context.Context, seq *Sequence, isOrigin bool) bool {
	text, prefix, kind := seq.inputs.Destination, o.cfg.DestinationLabel, domain.EventDestination
	set := o.layers.SetDestinationMarker
	slot := &o.destination
	if isOrigin {
		text, prefix, kind = seq.inputs.Origin, o.cfg.OriginLabel, domain.EventOrigin
		set = o.layers.SetOriginMarker
		slot = &o.origin
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return o.apply(seq, func() (domain.EventKind, error) {
			if *slot == nil {
				return "", nil
			}
			*slot = nil
			return kind, set(nil, "")
		})
	}

	res, err := o.geocoder.Geocode(ctx, text, seq.language)
	if o.isCancelled(seq, err) {
		return false
	}
	if err != nil {
		recordSpanError(trace.SpanFromContext(ctx), err)
		o.logger.Warn("geocode failed", "sequence", seq.id, "step", kind, "query", text, "error", err)
		return o.stillCurrent(seq)
	}
	if res == nil {
		o.logger.Info("no location found", "sequence", seq.id, "step", kind, "query", text)
		return o.stillCurrent(seq)
	}

	coord := res.Location
	return o.apply(seq, func() (domain.EventKind, error) {
		*slot = &coord
		return kind, set(&coord, prefix+text)
	})
}

// resolveRoute fetches and draws the route when both endpoints are known,
// otherwise recenters on the single known endpoint.
func (o *Orchestrator) resolveRoute(ctx context.Context, seq *Sequence) bool {
	var origin, destination *domain.Coordinate
	ok := o.apply(seq, func() (domain.EventKind, error) {
		origin, destination = o.origin, o.destination
		if o.layers.Route() == nil {
			return "", nil
		}
		// The previous polyline never outlives a new route request.
		return domain.EventRoute, o.layers.SetRoute(nil)
	})
	if !ok {
		return false
	}

	switch {
	case origin != nil && destination != nil:
		route, err := o.router.Route(ctx, *origin, *destination)
		if o.isCancelled(seq, err) {
			return false
		}
		if err != nil {
			recordSpanError(trace.SpanFromContext(ctx), err)
			o.logger.Error("route failed", "sequence", seq.id, "error", err)
			return o.stillCurrent(seq)
		}
		if route == nil {
			o.logger.Info("no route found", "sequence", seq.id)
			return o.stillCurrent(seq)
		}
		return o.apply(seq, func() (domain.EventKind, error) {
			return domain.EventRoute, o.layers.SetRoute(route)
		})

	case origin != nil || destination != nil:
		only := origin
		if only == nil {
			only = destination
		}
		return o.apply(seq, func() (domain.EventKind, error) {
			return domain.EventViewport, o.layers.CenterOnSingle(*only)
		})
	}
	return o.stillCurrent(seq)
}

// apply runs fn under the session lock if seq is still current, then
// publishes the returned event kind. An empty kind publishes nothing.
func (o *Orchestrator) apply(seq *Sequence, fn func() (domain.EventKind, error)) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != seq || seq.ctx.Err() != nil {
		return false
	}

	kind, err := fn()
	if err != nil {
		o.logger.Warn("layer update failed", "sequence", seq.id, "kind", kind, "error", err)
	}
	if kind != "" {
		o.touchLocked()
		o.publishLocked(kind, seq.id)
	}
	return true
}

func (o *Orchestrator) stillCurrent(seq *Sequence) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current == seq && seq.ctx.Err() == nil
}

func (o *Orchestrator) isCancelled(seq *Sequence, err error) bool {
	return domain.IsCancelled(err) || errors.Is(err, context.Canceled) || seq.ctx.Err() != nil
}

// Teardown cancels in-flight work, clears owned layers and destroys the
// surface. Repeated calls are no-ops.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	if o.state == domain.StateTornDown {
		o.mu.Unlock()
		return
	}
	if o.current != nil {
		o.current.cancel()
		o.current = nil
	}
	o.cancel()
	o.layers.Clear()
	o.origin, o.destination = nil, nil
	o.setStateLocked(domain.StateTornDown, 0)
	o.mu.Unlock()

	o.surface.Teardown()
	o.logger.Info("session torn down")
}

// SetLanguage changes the geocoding language for future sequences.
func (o *Orchestrator) SetLanguage(lang string) error {
	if !domain.IsSupportedLanguage(lang) {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedLang, lang)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.language = lang
	o.touchLocked()
	return nil
}

// NextLanguage advances to the next supported language and returns it.
func (o *Orchestrator) NextLanguage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.language = domain.NextLanguage(o.language)
	o.touchLocked()
	return o.language
}

// Current returns the in-flight sequence, or nil.
func (o *Orchestrator) Current() *Sequence {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// State returns the current orchestrator state.
func (o *Orchestrator) State() domain.SessionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns a copy of the session as currently displayed.
func (o *Orchestrator) Snapshot() *domain.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() *domain.Snapshot {
	snap := &domain.Snapshot{
		ID:          o.cfg.SessionID,
		State:       o.state,
		Language:    o.language,
		Inputs:      o.inputs,
		Sequence:    o.lastSeq,
		Origin:      o.layers.Origin(),
		Destination: o.layers.Destination(),
		Route:       o.layers.Route(),
		Anchor:      o.surface.Anchor(),
		CreatedAt:   o.createdAt,
		UpdatedAt:   o.updatedAt,
	}
	if c := o.surface.Container(); c != nil {
		cc := *c
		snap.Container = &cc
	}
	if w := o.surface.Widget(); w != nil {
		v := w.Viewport()
		snap.Viewport = &v
	}
	return snap
}

func (o *Orchestrator) setStateLocked(state domain.SessionState, seq uint64) {
	if o.state == state {
		return
	}
	o.state = state
	o.touchLocked()
	o.publishLocked(domain.EventState, seq)
}

func (o *Orchestrator) touchLocked() {
	o.updatedAt = time.Now()
}

// publishLocked sends a session event. Publishing is best effort; the
// publisher must not block.
func (o *Orchestrator) publishLocked(kind domain.EventKind, seq uint64) {
	if o.publisher == nil {
		return
	}
	evt := &domain.SessionEvent{
		SessionID: o.cfg.SessionID,
		Kind:      kind,
		Sequence:  seq,
		Time:      time.Now().UTC(),
		Snapshot:  o.snapshotLocked(),
	}
	if err := o.publisher.PublishSessionEvent(context.WithoutCancel(o.ctx), evt); err != nil {
		metrics.EventPublishErrors.Inc()
		o.logger.Warn("publish session event", "kind", kind, "error", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(kind)).Inc()
}

// recordSpanError marks span as failed unless err is a cancellation.
func recordSpanError(span trace.Span, err error) {
	if err == nil || domain.IsCancelled(err) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
