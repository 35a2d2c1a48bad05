// Package stats defines content-free operational counters with an
// in-memory implementation. Counters are aggregated per UTC day and
// never contain message text or user identifiers.
package stats

import (
	"context"
	"time"
)

// Counter names recorded by the relay and the scheduled jobs.
const (
	CounterMessages        = "messages_handled"
	CounterCommandStart    = "command_start"
	CounterCommandHelp     = "command_help"
	CounterCommandUnknown  = "command_unknown"
	CounterCompletionsOK   = "completions_ok"
	CounterCompletionsFail = "completions_failed"
	CounterRepliesSent     = "replies_sent"
	CounterRepliesFailed   = "replies_failed"
	CounterDropped         = "messages_dropped"
	CounterProbeOK         = "probe_ok"
	CounterProbeFail       = "probe_failed"
)

// Recorder accumulates named counters for the current day.
// Implementations must be safe for concurrent use.
type Recorder interface {
	// Increment adds one to the named counter for today.
	Increment(ctx context.Context, name string) error
}

// DayCounters holds every counter recorded for one UTC day.
type DayCounters struct {
	Day      string           `json:"day"` // YYYY-MM-DD
	Counters map[string]int64 `json:"counters"`
}

// Reader exposes recorded counters for the status endpoint and the CLI.
type Reader interface {
	// Totals returns the all-time sum of every counter.
	Totals(ctx context.Context) (map[string]int64, error)

	// RecentDays returns per-day counters for the most recent n days,
	// newest first.
	RecentDays(ctx context.Context, n int) ([]DayCounters, error)
}

// Pruner removes counters older than a retention cutoff.
type Pruner interface {
	// PruneBefore deletes counters for days strictly before cutoff and
	// returns the number of rows removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Day formats t as the canonical day key (UTC, YYYY-MM-DD).
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
