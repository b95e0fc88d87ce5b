package http_test

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/samirrijal/mapview/internal/core/domain"
)

func TestWebSocket_RelaysSessionEvents(t *testing.T) {
	app := setupApp(makeDeps())
	created := mount(t, app, "")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws?session="+created.ID, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ack map[string]string
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack["status"] != "subscribed" || ack["session"] != created.ID {
		t.Fatalf("unexpected ack %v", ack)
	}

	req := httptest.NewRequest("PUT", "/v1/sessions/"+created.ID+"/inputs?wait=true", strings.NewReader(`{"origin":"Cancún"}`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req, -1); err != nil {
		t.Fatal(err)
	}

	seen := map[domain.EventKind]bool{}
	for !seen[domain.EventOrigin] {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read event: %v (seen %v)", err, seen)
		}
		var evt domain.SessionEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if evt.SessionID != created.ID {
			t.Fatalf("event for wrong session %q", evt.SessionID)
		}
		seen[evt.Kind] = true
	}
}

func TestWebSocket_UnknownAction(t *testing.T) {
	app := setupApp(makeDeps())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(map[string]string{"action": "watch", "session": "x"}); err != nil {
		t.Fatal(err)
	}
	var reply map[string]string
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply["error"] != "unknown action: watch" {
		t.Errorf("unexpected reply %v", reply)
	}
}
