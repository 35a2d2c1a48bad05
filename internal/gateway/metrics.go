package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// handleMetrics serves the process Prometheus registry. The relay and
// the scheduled jobs register their instruments with it at startup.
func (g *Gateway) handleMetrics() http.Handler {
	if g.gatherer == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(g.gatherer, promhttp.HandlerOpts{})
}
