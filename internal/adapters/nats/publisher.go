package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/core/domain"
)

const (
	// SubjectPrefix roots every session subject:
	// mapview.session.<session-id>.<event-kind>
	SubjectPrefix = "mapview.session"
	streamName    = "MAP_SESSIONS"
)

// SessionSubject returns the subject for one kind of event of a session.
func SessionSubject(sessionID string, kind domain.EventKind) string {
	return SubjectPrefix + "." + sessionID + "." + string(kind)
}

// SessionWildcard matches every event of a session.
func SessionWildcard(sessionID string) string {
	return SubjectPrefix + "." + sessionID + ".>"
}

// Publisher implements ports.EventPublisher using NATS.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher wraps conn and makes sure the MAP_SESSIONS stream exists so
// recent events can be replayed. Without JetStream events still flow over
// core NATS.
func NewPublisher(conn *nats.Conn, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ensureStream(conn); err != nil {
		logger.Warn("jetstream unavailable, publishing over core nats", "error", err)
	}
	return &Publisher{conn: conn}
}

func ensureStream(conn *nats.Conn) error {
	js, err := conn.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}
	cfg := nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{SubjectPrefix + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.MemoryStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; update it instead
		if _, err := js.UpdateStream(&cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// PublishSessionEvent sends evt as JSON on its session subject.
func (p *Publisher) PublishSessionEvent(ctx context.Context, evt *domain.SessionEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	return p.conn.Publish(SessionSubject(evt.SessionID, evt.Kind), data)
}

// Conn returns the underlying connection.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection that keeps retrying in the
// background.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("mapview"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
