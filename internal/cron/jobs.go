package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/stats"
)

// ProviderProbeJob actively checks the AI provider and feeds the result
// into the status tracker, the counters, and the event feed. Probes are
// observational: a failed probe is recorded, never escalated, so the
// scheduler does not log it twice.
type ProviderProbeJob struct {
	Checker      provider.HealthChecker
	Status       *provider.Status
	Stats        stats.Recorder
	Events       events.Sink
	Logger       *slog.Logger
	Timeout      time.Duration // empty = default 10s
	ScheduleExpr string        // empty = default "*/5 * * * *"
}

// Compile-time interface check.
var _ Job = (*ProviderProbeJob)(nil)

// Name implements Job.
func (j *ProviderProbeJob) Name() string { return "provider_probe" }

// Schedule implements Job.
func (j *ProviderProbeJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/5 * * * *"
}

// Run probes the provider once and records the outcome.
func (j *ProviderProbeJob) Run(ctx context.Context) error {
	if j.Checker == nil {
		return errors.New("cron: probe has no health checker")
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := j.Checker.HealthCheck(probeCtx)
	duration := time.Since(start)

	if err != nil {
		if j.Status != nil {
			j.Status.RecordFailure(err)
		}
		j.count(ctx, stats.CounterProbeFail)
		j.publish(map[string]any{
			"ok":          false,
			"transient":   provider.IsTransient(err),
			"duration_ms": duration.Milliseconds(),
		})
		j.Logger.Warn("cron: provider probe failed",
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return nil
	}

	if j.Status != nil {
		j.Status.RecordSuccess()
	}
	j.count(ctx, stats.CounterProbeOK)
	j.publish(map[string]any{
		"ok":          true,
		"duration_ms": duration.Milliseconds(),
	})
	j.Logger.Debug("cron: provider probe ok", "duration_ms", duration.Milliseconds())
	return nil
}

func (j *ProviderProbeJob) count(ctx context.Context, name string) {
	if j.Stats == nil {
		return
	}
	if err := j.Stats.Increment(ctx, name); err != nil {
		j.Logger.Debug("cron: counter increment failed", "counter", name, "error", err)
	}
}

func (j *ProviderProbeJob) publish(data map[string]any) {
	if j.Events == nil {
		return
	}
	j.Events.Publish(events.Event{Kind: events.KindProbeResult, Data: data})
}

// StatsPruneJob deletes usage counters older than the retention window.
type StatsPruneJob struct {
	Store        stats.Pruner
	Retention    time.Duration // empty = default 90 days
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "10 3 * * *"
}

// Compile-time interface check.
var _ Job = (*StatsPruneJob)(nil)

// Name implements Job.
func (j *StatsPruneJob) Name() string { return "stats_prune" }

// Schedule implements Job.
func (j *StatsPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "10 3 * * *"
}

// Run removes counters for days that fell out of the retention window.
func (j *StatsPruneJob) Run(ctx context.Context) error {
	if j.Store == nil {
		return errors.New("cron: prune has no store")
	}

	retention := j.Retention
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	cutoff := time.Now().Add(-retention)

	removed, err := j.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cron: pruning counters: %w", err)
	}
	if removed > 0 {
		j.Logger.Info("cron: pruned old counters",
			"removed", removed,
			"cutoff", cutoff.Format("2006-01-02"),
		)
	}
	return nil
}
