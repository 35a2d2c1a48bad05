package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
)

// handleEvents streams operator events over a WebSocket. Each event is
// one JSON text frame. Slow readers lose events at the hub, never here:
// the hub's per-subscriber buffer drops on overflow, so a stuck socket
// cannot stall publishers.
func (g *Gateway) handleEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.hub == nil {
			http.Error(w, "event feed unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Debug("gateway: websocket accept failed", "error", err)
			return
		}

		// Write-only stream: CloseRead watches for the client closing.
		ctx := conn.CloseRead(r.Context())

		ch, cancel := g.hub.Subscribe()
		defer cancel()

		g.logger.Debug("gateway: event subscriber connected", "remote", r.RemoteAddr)

		for {
			select {
			case <-ctx.Done():
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			case evt, ok := <-ch:
				if !ok {
					_ = conn.Close(websocket.StatusGoingAway, "event feed closed")
					return
				}
				data, err := json.Marshal(evt)
				if err != nil {
					g.logger.Error("gateway: marshal event failed", "error", err)
					continue
				}
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					g.logger.Debug("gateway: event subscriber gone", "error", err)
					return
				}
			}
		}
	}
}
