package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(g.requestLogger)

	// Public, no auth required.
	r.Get("/healthz", g.handleHealth())
	r.Get("/metrics", g.handleMetrics().ServeHTTP)
	r.Get("/ws/events", g.handleEvents())

	// The Telegram webhook validates its own secret token header.
	if g.webhook != nil {
		r.Post(g.config.WebhookPath, g.webhook.ServeHTTP)
	}

	// Status endpoints are read-only and wrapped in auth when configured.
	statusRoutes := func(r chi.Router) {
		r.Get("/statz", g.handleStatz())
		r.Get("/configz", g.handleConfigz())
	}
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth))
			statusRoutes(r)
		})
	} else {
		r.Group(statusRoutes)
	}

	return r
}

// requestLogger logs one debug line per request. The webhook path is
// skipped: the Telegram module logs its own receipt line.
func (g *Gateway) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == g.config.WebhookPath {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		g.logger.Debug("gateway: request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
