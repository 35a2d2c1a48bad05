package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/gemgram/gemgram/internal/cron"
	"github.com/gemgram/gemgram/internal/cron/crontest"
	"github.com/gemgram/gemgram/internal/events"
	"github.com/gemgram/gemgram/internal/provider"
	"github.com/gemgram/gemgram/internal/provider/providertest"
	"github.com/gemgram/gemgram/internal/stats"
)

func TestProviderProbeJob_Name(t *testing.T) {
	t.Parallel()
	j := &cron.ProviderProbeJob{Logger: slog.Default()}
	if j.Name() != "provider_probe" {
		t.Errorf("name = %q, want %q", j.Name(), "provider_probe")
	}
}

func TestProviderProbeJob_Schedule(t *testing.T) {
	t.Parallel()

	j := &cron.ProviderProbeJob{Logger: slog.Default()}
	if j.Schedule() != "*/5 * * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "*/5 * * * *")
	}

	j.ScheduleExpr = "*/2 * * * *"
	if j.Schedule() != "*/2 * * * *" {
		t.Errorf("schedule = %q, want custom", j.Schedule())
	}
}

func TestProviderProbeJob_NoChecker(t *testing.T) {
	t.Parallel()
	j := &cron.ProviderProbeJob{Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error without checker")
	}
}

func TestProviderProbeJob_Success(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		HealthCheckFunc: func(_ context.Context) error { return nil },
	}
	status := provider.NewStatus(provider.StatusConfig{}, nil)
	status.RecordFailure(errors.New("earlier failure"))
	store := stats.NewInMemoryStore()
	hub := events.NewHub()
	feed, cancel := hub.Subscribe()
	defer cancel()

	j := &cron.ProviderProbeJob{
		Checker: mock,
		Status:  status,
		Stats:   store,
		Events:  hub,
		Logger:  slog.Default(),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.HealthCalls() != 1 {
		t.Errorf("health calls = %d, want 1", mock.HealthCalls())
	}
	if status.State() != provider.StateHealthy {
		t.Errorf("state = %v, want healthy", status.State())
	}

	totals, err := store.Totals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if totals[stats.CounterProbeOK] != 1 {
		t.Errorf("probe_ok = %d, want 1", totals[stats.CounterProbeOK])
	}

	select {
	case evt := <-feed:
		if evt.Kind != events.KindProbeResult {
			t.Errorf("kind = %q, want %q", evt.Kind, events.KindProbeResult)
		}
		if ok, _ := evt.Data["ok"].(bool); !ok {
			t.Errorf("data = %v, want ok=true", evt.Data)
		}
	default:
		t.Fatal("no probe event published")
	}
}

func TestProviderProbeJob_Failure(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		HealthCheckFunc: func(_ context.Context) error { return provider.ErrProviderDown },
	}
	status := provider.NewStatus(provider.StatusConfig{}, nil)
	store := stats.NewInMemoryStore()
	hub := events.NewHub()
	feed, cancel := hub.Subscribe()
	defer cancel()

	j := &cron.ProviderProbeJob{
		Checker: mock,
		Status:  status,
		Stats:   store,
		Events:  hub,
		Logger:  slog.Default(),
	}

	// A failed probe is recorded, not returned.
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if status.State() == provider.StateHealthy {
		t.Error("state should not be healthy after a failed probe")
	}

	totals, err := store.Totals(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if totals[stats.CounterProbeFail] != 1 {
		t.Errorf("probe_failed = %d, want 1", totals[stats.CounterProbeFail])
	}

	select {
	case evt := <-feed:
		if ok, _ := evt.Data["ok"].(bool); ok {
			t.Errorf("data = %v, want ok=false", evt.Data)
		}
		if transient, _ := evt.Data["transient"].(bool); !transient {
			t.Errorf("data = %v, want transient=true", evt.Data)
		}
	default:
		t.Fatal("no probe event published")
	}
}

func TestProviderProbeJob_Timeout(t *testing.T) {
	t.Parallel()

	mock := &providertest.MockProvider{
		HealthCheckFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	status := provider.NewStatus(provider.StatusConfig{}, nil)

	j := &cron.ProviderProbeJob{
		Checker: mock,
		Status:  status,
		Logger:  slog.Default(),
		Timeout: 20 * time.Millisecond,
	}

	done := make(chan struct{})
	go func() {
		_ = j.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("probe did not respect its timeout")
	}

	if status.State() == provider.StateHealthy {
		t.Error("timed-out probe should count as a failure")
	}
}

func TestProviderProbeJob_NilCollaborators(t *testing.T) {
	t.Parallel()

	// Status, Stats and Events are optional.
	mock := &providertest.MockProvider{
		HealthCheckFunc: func(_ context.Context) error { return nil },
	}
	j := &cron.ProviderProbeJob{Checker: mock, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStatsPruneJob_Name(t *testing.T) {
	t.Parallel()
	j := &cron.StatsPruneJob{Logger: slog.Default()}
	if j.Name() != "stats_prune" {
		t.Errorf("name = %q, want %q", j.Name(), "stats_prune")
	}
}

func TestStatsPruneJob_Schedule(t *testing.T) {
	t.Parallel()

	j := &cron.StatsPruneJob{Logger: slog.Default()}
	if j.Schedule() != "10 3 * * *" {
		t.Errorf("schedule = %q, want %q", j.Schedule(), "10 3 * * *")
	}
}

func TestStatsPruneJob_NoStore(t *testing.T) {
	t.Parallel()
	j := &cron.StatsPruneJob{Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected error without store")
	}
}

func TestStatsPruneJob_Run(t *testing.T) {
	t.Parallel()

	retention := 30 * 24 * time.Hour
	pruner := &crontest.MockPruner{
		PruneFunc: func(_ context.Context, cutoff time.Time) (int64, error) {
			want := time.Now().Add(-retention)
			if cutoff.Before(want.Add(-time.Minute)) || cutoff.After(want.Add(time.Minute)) {
				t.Errorf("cutoff = %v, want about %v", cutoff, want)
			}
			return 12, nil
		},
	}

	j := &cron.StatsPruneJob{
		Store:     pruner,
		Retention: retention,
		Logger:    slog.Default(),
	}

	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pruner.PruneCalls.Load() != 1 {
		t.Errorf("prune calls = %d, want 1", pruner.PruneCalls.Load())
	}
}

func TestStatsPruneJob_StoreError(t *testing.T) {
	t.Parallel()

	pruner := &crontest.MockPruner{
		PruneFunc: func(_ context.Context, _ time.Time) (int64, error) {
			return 0, errors.New("disk full")
		},
	}

	j := &cron.StatsPruneJob{Store: pruner, Logger: slog.Default()}
	if err := j.Run(context.Background()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestStatsPruneJob_DefaultRetention(t *testing.T) {
	t.Parallel()

	pruner := &crontest.MockPruner{
		PruneFunc: func(_ context.Context, cutoff time.Time) (int64, error) {
			want := time.Now().Add(-90 * 24 * time.Hour)
			if cutoff.Before(want.Add(-time.Hour)) || cutoff.After(want.Add(time.Hour)) {
				t.Errorf("cutoff = %v, want about 90 days ago", cutoff)
			}
			return 0, nil
		},
	}

	j := &cron.StatsPruneJob{Store: pruner, Logger: slog.Default()}
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
