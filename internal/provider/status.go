package provider

import (
	"sync"
	"time"
)

// State represents the observed availability of a provider.
type State int

// Observed availability states.
const (
	StateHealthy  State = iota
	StateDegraded       // recent failures, below the down threshold
	StateDown           // too many consecutive failures
)

// String returns a human-readable label for the state.
func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateDown:
		return "down"
	default:
		return "unknown"
	}
}

// StatusConfig controls status tracking behavior.
type StatusConfig struct {
	// DownAfter is the number of consecutive failures before the
	// provider is reported down. Default: 5.
	DownAfter int
}

// defaults fills zero-value fields with sensible defaults.
func (c *StatusConfig) defaults() {
	if c.DownAfter <= 0 {
		c.DownAfter = 5
	}
}

// Status tracks observed provider availability. It is purely
// observational: completions are attempted regardless of state.
// Both the relay and the scheduled probe feed it; the gateway
// reads snapshots for reporting.
type Status struct {
	cfg StatusConfig

	// onChange is called outside the lock whenever the state
	// transitions. It keeps the tracker decoupled from logging.
	onChange func(from, to State)

	mu        sync.Mutex
	state     State
	failures  int // consecutive
	totalOK   uint64
	totalFail uint64
	lastErr   string
	lastErrAt time.Time
	lastOKAt  time.Time

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewStatus creates a healthy Status. onChange may be nil.
func NewStatus(cfg StatusConfig, onChange func(from, to State)) *Status {
	cfg.defaults()
	return &Status{
		cfg:      cfg,
		onChange: onChange,
		state:    StateHealthy,
		now:      time.Now,
	}
}

// RecordSuccess resets the tracker to the healthy state.
func (s *Status) RecordSuccess() {
	s.mu.Lock()
	prev := s.state
	s.state = StateHealthy
	s.failures = 0
	s.totalOK++
	s.lastOKAt = s.now()
	s.mu.Unlock()

	if prev != StateHealthy && s.onChange != nil {
		s.onChange(prev, StateHealthy)
	}
}

// RecordFailure records a failed request or probe. The tracker moves
// to degraded on the first failure and to down once DownAfter
// consecutive failures accumulate.
func (s *Status) RecordFailure(err error) {
	s.mu.Lock()
	prev := s.state
	s.failures++
	s.totalFail++
	if err != nil {
		s.lastErr = err.Error()
	}
	s.lastErrAt = s.now()

	next := StateDegraded
	if s.failures >= s.cfg.DownAfter {
		next = StateDown
	}
	s.state = next
	s.mu.Unlock()

	if prev != next && s.onChange != nil {
		s.onChange(prev, next)
	}
}

// State returns the current state.
func (s *Status) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Failures returns the current consecutive failure count.
func (s *Status) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

// Snapshot returns a point-in-time copy of the counters and timestamps.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		State:               s.state.String(),
		ConsecutiveFailures: s.failures,
		TotalSuccesses:      s.totalOK,
		TotalFailures:       s.totalFail,
		LastError:           s.lastErr,
		LastErrorAt:         s.lastErrAt,
		LastSuccessAt:       s.lastOKAt,
	}
}

// StatusSnapshot is a point-in-time view of a Status, shaped for the
// gateway's status endpoint and the event feed.
type StatusSnapshot struct {
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TotalSuccesses      uint64    `json:"total_successes"`
	TotalFailures       uint64    `json:"total_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastErrorAt         time.Time `json:"last_error_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
}
