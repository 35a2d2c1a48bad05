package gateway

import (
	"net/http"
	"time"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/internal/provider"
)

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status        string            `json:"status"` // "ok" or "degraded"
	UptimeSeconds int64             `json:"uptime_seconds"`
	Components    map[string]string `json:"components"`
}

// handleHealth returns an http.HandlerFunc for GET /healthz.
// Returns 200 when the provider is healthy and every channel ingest loop
// is running, 503 naming the degraded components otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(g.startedAt).Seconds()),
			Components:    map[string]string{},
		}

		if g.status != nil {
			state := g.status.State()
			resp.Components["provider"] = state.String()
			if state != provider.StateHealthy {
				resp.Status = "degraded"
			}
		}

		if g.channels != nil {
			for _, name := range g.channels.Channels() {
				ch, ok := g.channels.Get(name)
				if !ok {
					continue
				}
				live, ok := ch.(channel.Liveness)
				if !ok {
					continue
				}
				if live.Running() {
					resp.Components["channel."+name] = "running"
				} else {
					resp.Components["channel."+name] = "stopped"
					resp.Status = "degraded"
				}
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
