package http

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/mapview/internal/core/ports"
	"github.com/samirrijal/mapview/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to a session.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Session string `json:"session"` // session id
}

const (
	wsPingInterval = 30 * time.Second
	wsSendBuffer   = 64
)

// WebSocketHandler returns a handler that relays session events to
// connected clients.
// Clients send JSON: {"action":"subscribe","session":"<id>"}.
// A ?session=<id> query parameter subscribes on connect. Events that do not
// fit the send buffer of a slow client are dropped.
func WebSocketHandler(events ports.EventSubscriber, logger *slog.Logger) func(*websocket.Conn) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *websocket.Conn) {
		defer c.Close()

		log := logger.With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		if events == nil {
			_ = c.WriteJSON(map[string]string{"error": "event stream not available"})
			return
		}

		send := make(chan []byte, wsSendBuffer)
		done := make(chan struct{})

		// Single writer: events, replies and pings all go through here.
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case data := <-send:
					if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
						return
					}
				case <-ticker.C:
					if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		enqueue := func(data []byte) {
			select {
			case send <- data:
			case <-done:
			default:
				log.Debug("ws send buffer full, dropping message")
			}
		}
		reply := func(v interface{}) {
			data, err := json.Marshal(v)
			if err != nil {
				return
			}
			enqueue(data)
		}

		subs := make(map[string]func() error) // session id -> unsubscribe

		subscribe := func(id string) {
			if _, exists := subs[id]; exists {
				reply(map[string]string{"status": "already subscribed", "session": id})
				return
			}
			unsub, err := events.SubscribeSession(id, enqueue)
			if err != nil {
				reply(map[string]string{"error": "subscribe failed: " + err.Error()})
				return
			}
			subs[id] = unsub
			reply(map[string]string{"status": "subscribed", "session": id})
		}

		if id := c.Query("session"); id != "" {
			subscribe(id)
		}

		// Read client messages for subscribe/unsubscribe
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				reply(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.Session == "" {
				reply(map[string]string{"error": "session is required"})
				continue
			}

			switch m.Action {
			case "subscribe":
				subscribe(m.Session)

			case "unsubscribe":
				if unsub, exists := subs[m.Session]; exists {
					_ = unsub()
					delete(subs, m.Session)
					reply(map[string]string{"status": "unsubscribed", "session": m.Session})
				} else {
					reply(map[string]string{"error": "not subscribed to " + m.Session})
				}

			default:
				reply(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		for _, unsub := range subs {
			_ = unsub()
		}
		close(done)
		log.Info("ws client disconnected", "subscriptions", len(subs))
	}
}
