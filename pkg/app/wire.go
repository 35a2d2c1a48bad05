package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"

	"github.com/gemgram/gemgram/internal/channel"
	"github.com/gemgram/gemgram/internal/config"
	"github.com/gemgram/gemgram/internal/core"
	"github.com/gemgram/gemgram/internal/cron"
	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/relay"
	"github.com/gemgram/gemgram/internal/stats"
)

// relayModule wraps a *relay.Relay to satisfy core.Module, core.Starter,
// and core.Stopper, so the relay participates in the App lifecycle.
type relayModule struct {
	relay *relay.Relay
	ctx   context.Context
}

func (m *relayModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "relay"}
}

func (m *relayModule) Start() error {
	m.relay.Start(m.ctx)
	return nil
}

func (m *relayModule) Stop(ctx context.Context) error {
	m.relay.Stop(ctx)
	return nil
}

// schedulerModule wraps a *cron.Scheduler the same way.
type schedulerModule struct {
	sched *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron"}
}

func (m *schedulerModule) Start() error {
	return m.sched.Start()
}

func (m *schedulerModule) Stop(ctx context.Context) error {
	return m.sched.Stop(ctx)
}

// wiring carries the shared pieces wireRelay needs beyond the app itself.
type wiring struct {
	cfg      *config.Config
	logger   *slog.Logger
	hub      *events.Hub
	registry *prometheus.Registry
	tracer   trace.Tracer
}

// wireRelay discovers channels and the provider among the loaded modules,
// builds the relay, connects every channel inbox to it, and appends the
// relay to the app lifecycle. Must be called after LoadModules and before
// Start. It returns the relay and the discovered provider.
func wireRelay(app *core.App, appCtx *core.AppContext, ids []string, w wiring) (*relay.Relay, provider.Provider, error) {
	dispatcher := channel.NewDispatcher()
	var channels []channel.Channel
	var completions provider.Provider

	for _, id := range ids {
		mod, ok := app.Module(id)
		if !ok {
			continue
		}
		if ch, ok := mod.(channel.Channel); ok {
			// Register under the full module ID (e.g. "channel.telegram")
			// because that is what the channel sets as msg.Channel.
			if err := dispatcher.Register(id, ch); err != nil {
				return nil, nil, fmt.Errorf("app: registering channel %s: %w", id, err)
			}
			channels = append(channels, ch)
			w.logger.Info("relay: registered channel", "channel", id)
		}
		if p, ok := mod.(provider.Provider); ok {
			if completions != nil {
				return nil, nil, fmt.Errorf("app: multiple provider modules configured (%s)", id)
			}
			completions = p
			w.logger.Info("relay: discovered provider", "module", id, "model", p.ModelName())
		}
	}

	if len(channels) == 0 {
		return nil, nil, errors.New("app: at least one channel module is required")
	}
	if completions == nil {
		return nil, nil, errors.New("app: a provider module is required")
	}

	// Counters: prefer the store module's recorder; fall back to memory so
	// the relay never runs unaccounted.
	recorder := resolveRecorder(appCtx, w.logger)

	status := provider.NewStatus(provider.StatusConfig{}, func(from, to provider.State) {
		w.logger.Warn("provider state changed",
			"from", from.String(),
			"to", to.String(),
		)
		w.hub.Publish(events.Event{Kind: events.KindProviderState, Data: map[string]any{
			"from": from.String(),
			"to":   to.String(),
		}})
	})
	appCtx.RegisterService("provider.status", status)
	appCtx.RegisterService("channel.dispatcher", dispatcher)

	// Sampled at scrape time; the relay and the probe both move the state.
	promauto.With(w.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "gemgram",
		Subsystem: "provider",
		Name:      "healthy",
		Help:      "1 while the AI provider is healthy, 0 after recent failures.",
	}, func() float64 {
		if status.State() == provider.StateHealthy {
			return 1
		}
		return 0
	})

	rly, err := relay.New(relay.Config{
		Provider:        completions,
		Sender:          dispatcher,
		Workers:         w.cfg.Relay.Workers,
		InboxSize:       w.cfg.Relay.InboxSize,
		ResponseTimeout: time.Duration(w.cfg.Relay.ResponseTimeoutSeconds) * time.Second,
		DrainTimeout:    time.Duration(w.cfg.Relay.DrainTimeoutSeconds) * time.Second,
		Status:          status,
		Stats:           recorder,
		Events:          w.hub,
		Metrics:         relay.NewMetrics(w.registry),
		Tracer:          w.tracer,
		Logger:          w.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("app: creating relay: %w", err)
	}

	for _, ch := range channels {
		ch.SetInbox(rly.Submit)
	}

	app.AppendModule("relay", &relayModule{
		relay: rly,
		ctx:   context.Background(),
	})

	w.logger.Info("relay: wired", "channels", len(channels))
	return rly, completions, nil
}

// resolveRecorder returns the stats recorder registered by a store module,
// or an in-memory store registered in its place.
func resolveRecorder(appCtx *core.AppContext, logger *slog.Logger) stats.Recorder {
	if svc, ok := appCtx.GetService("stats.recorder"); ok {
		if rec, ok := svc.(stats.Recorder); ok {
			return rec
		}
	}

	mem := stats.NewInMemoryStore()
	appCtx.RegisterService("stats.recorder", mem)
	appCtx.RegisterService("stats.reader", mem)
	appCtx.RegisterService("stats.pruner", mem)
	logger.Info("app: no store module loaded, counters are in-memory only")
	return mem
}

// wireScheduler registers the provider probe and the counter retention job
// with a scheduler and appends it to the app lifecycle. A schedule of "off"
// disables the corresponding job; when every job is disabled, no scheduler
// is started.
func wireScheduler(
	app *core.App,
	appCtx *core.AppContext,
	cfg config.CronConfig,
	prov provider.Provider,
	status *provider.Status,
	hub *events.Hub,
	logger *slog.Logger,
) error {
	sched := cron.NewScheduler(logger)
	jobs := 0

	if cfg.ProviderProbe != "off" {
		if checker, ok := prov.(provider.HealthChecker); ok {
			var rec stats.Recorder
			if svc, ok := appCtx.GetService("stats.recorder"); ok {
				rec, _ = svc.(stats.Recorder)
			}
			if err := sched.Register(&cron.ProviderProbeJob{
				Checker:      checker,
				Status:       status,
				Stats:        rec,
				Events:       hub,
				Logger:       logger,
				ScheduleExpr: cfg.ProviderProbe,
			}); err != nil {
				return fmt.Errorf("app: registering probe job: %w", err)
			}
			jobs++
		} else {
			logger.Debug("app: provider has no health check, probe disabled")
		}
	}

	if cfg.StatsPrune != "off" {
		if svc, ok := appCtx.GetService("stats.pruner"); ok {
			if pruner, ok := svc.(stats.Pruner); ok {
				if err := sched.Register(&cron.StatsPruneJob{
					Store:        pruner,
					Retention:    time.Duration(cfg.StatsRetentionDays) * 24 * time.Hour,
					Logger:       logger,
					ScheduleExpr: cfg.StatsPrune,
				}); err != nil {
					return fmt.Errorf("app: registering prune job: %w", err)
				}
				jobs++
			}
		}
	}

	if jobs == 0 {
		logger.Info("app: no scheduled jobs enabled")
		return nil
	}

	app.AppendModule("cron", &schedulerModule{sched: sched})
	return nil
}
