package relay

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for the message counter.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeCommand = "command"
	outcomeIgnored = "ignored"
	outcomeDropped = "dropped"
)

// Metrics holds the relay's Prometheus instruments. All methods are
// nil-receiver safe so a relay without metrics simply records nothing.
type Metrics struct {
	messages   *prometheus.CounterVec
	completion *prometheus.HistogramVec
	inboxDepth prometheus.Gauge
}

// NewMetrics creates the relay instruments and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gemgram",
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Messages handled by the relay, partitioned by outcome.",
		}, []string{"outcome"}),
		completion: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gemgram",
			Subsystem: "relay",
			Name:      "completion_seconds",
			Help:      "Latency of AI completion calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"result"}),
		inboxDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "gemgram",
			Subsystem: "relay",
			Name:      "inbox_depth",
			Help:      "Messages currently waiting in the relay inbox.",
		}),
	}
}

// CountMessage increments the message counter for one outcome.
func (m *Metrics) CountMessage(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

// ObserveCompletion records the latency of one completion call.
func (m *Metrics) ObserveCompletion(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.completion.WithLabelValues(result).Observe(d.Seconds())
}

// InboxAdd adjusts the inbox depth gauge by delta.
func (m *Metrics) InboxAdd(delta float64) {
	if m == nil {
		return
	}
	m.inboxDepth.Add(delta)
}
