package progress

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dengbej/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection and streams events for requestID
// until the request reaches a terminal stage or the client goes away.
// Events already buffered for the request are replayed first.
func (h *Hub) ServeWebSocket(w http.ResponseWriter, r *http.Request, requestID string, logger *slog.Logger) {
	logger = logging.NewComponentLogger(logger, "progress").With(logging.String(logging.FieldRequestID, requestID))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reading is only needed to observe pongs and the close frame.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pings := time.NewTicker(pingPeriod)
	defer pings.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-pings.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	var since uint64
	for {
		events, next, err := h.Fetch(ctx, requestID, since, true)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Debug("progress fetch ended", logging.Error(err))
			}
			return
		}
		since = next
		for _, evt := range events {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				logger.Debug("progress write failed", logging.Error(err))
				return
			}
			if evt.Terminal() {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, evt.Stage)
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
				return
			}
		}
	}
}
