package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"marketfront/core/session"
	"marketfront/gateway/middleware"
)

const wsWriteTimeout = 10 * time.Second

// stream upgrades to a websocket and pushes the current snapshot followed by
// every newer one the session publishes.
func (a *api) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		a.logger.Warn("stream upgrade failed",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := a.streamSnapshots(ctx, conn); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (a *api) streamSnapshots(ctx context.Context, conn *websocket.Conn) error {
	updates, cancel := a.session.Subscribe()
	defer cancel()

	current := a.session.Snapshot()
	if err := writeSnapshot(ctx, conn, current); err != nil {
		return err
	}
	last := current.Version
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case state, ok := <-updates:
			if !ok {
				return nil
			}
			if state.Version <= last {
				continue
			}
			if err := writeSnapshot(ctx, conn, state); err != nil {
				return err
			}
			last = state.Version
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, state session.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
