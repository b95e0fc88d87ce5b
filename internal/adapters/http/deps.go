package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mapview/internal/adapters/valkey"
	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	// Events feeds the WebSocket relay.
	Events ports.EventSubscriber
	// NATS and Limiter are optional; nil means not configured.
	NATS    *nats.Conn
	Limiter *valkey.Storage
}
