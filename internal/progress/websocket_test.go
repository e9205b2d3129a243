package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestServeWebSocketStreamsUntilTerminal(t *testing.T) {
	hub := NewHub(16)
	hub.Publish("req-1", StageReceived, "clip.mp4")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWebSocket(w, r, "req-1", nil)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first Event
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read replay: %v", err)
	}
	if first.Stage != StageReceived || first.Message != "clip.mp4" {
		t.Fatalf("unexpected replayed event %+v", first)
	}

	hub.Publish("req-2", StageReceived, "")
	hub.Publish("req-1", StageCompleted, "")

	var last Event
	if err := conn.ReadJSON(&last); err != nil {
		t.Fatalf("read terminal: %v", err)
	}
	if last.Stage != StageCompleted || last.RequestID != "req-1" {
		t.Fatalf("unexpected event %+v", last)
	}

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}
