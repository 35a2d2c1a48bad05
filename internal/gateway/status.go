package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/stats"
)

// StatzResponse is the JSON response for GET /statz.
type StatzResponse struct {
	UptimeSeconds int64                    `json:"uptime_seconds"`
	Provider      *provider.StatusSnapshot `json:"provider,omitempty"`
	Totals        map[string]int64         `json:"totals,omitempty"`
	Days          []stats.DayCounters      `json:"days,omitempty"`
}

// handleStatz returns an http.HandlerFunc for GET /statz: the counter
// totals, the recent per-day counters, and the provider status snapshot.
func (g *Gateway) handleStatz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatzResponse{
			UptimeSeconds: int64(time.Since(g.startedAt).Seconds()),
		}

		if g.status != nil {
			snap := g.status.Snapshot()
			// The provider error may quote request detail; scrub it the
			// same way log lines are scrubbed.
			if g.redactor != nil {
				snap.LastError = g.redactor.Redact(snap.LastError)
			}
			resp.Provider = &snap
		}

		if g.statsView != nil {
			totals, err := g.statsView.Totals(r.Context())
			if err != nil {
				g.logger.Error("gateway: stats totals failed", "error", err)
				http.Error(w, "stats unavailable", http.StatusInternalServerError)
				return
			}
			resp.Totals = totals

			days, err := g.statsView.RecentDays(r.Context(), g.config.StatzDays)
			if err != nil {
				g.logger.Error("gateway: stats recent days failed", "error", err)
				http.Error(w, "stats unavailable", http.StatusInternalServerError)
				return
			}
			resp.Days = days
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// handleConfigz serves the redacted effective configuration. The view is
// prepared at startup; secrets never enter it.
func (g *Gateway) handleConfigz() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configView == nil {
			http.Error(w, "config view not available", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, g.configView)
	}
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
