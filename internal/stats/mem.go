package stats

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe, in-memory implementation of Recorder,
// Reader, and Pruner. It backs tests and deployments without a store
// module; counters are lost on restart.
type InMemoryStore struct {
	mu   sync.RWMutex
	days map[string]map[string]int64

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// NewInMemoryStore creates a new empty counter store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		days: make(map[string]map[string]int64),
		now:  time.Now,
	}
}

// Compile-time interface checks.
var (
	_ Recorder = (*InMemoryStore)(nil)
	_ Reader   = (*InMemoryStore)(nil)
	_ Pruner   = (*InMemoryStore)(nil)
)

// Increment adds one to the named counter for today.
func (s *InMemoryStore) Increment(_ context.Context, name string) error {
	day := Day(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	counters, ok := s.days[day]
	if !ok {
		counters = make(map[string]int64)
		s.days[day] = counters
	}
	counters[name]++
	return nil
}

// Totals returns the all-time sum of every counter.
func (s *InMemoryStore) Totals(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]int64)
	for _, counters := range s.days {
		for name, v := range counters {
			totals[name] += v
		}
	}
	return totals, nil
}

// RecentDays returns per-day counters for the most recent n days, newest first.
func (s *InMemoryStore) RecentDays(_ context.Context, n int) ([]DayCounters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := make([]string, 0, len(s.days))
	for day := range s.days {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	if n > 0 && n < len(days) {
		days = days[:n]
	}

	result := make([]DayCounters, 0, len(days))
	for _, day := range days {
		counters := make(map[string]int64, len(s.days[day]))
		for name, v := range s.days[day] {
			counters[name] = v
		}
		result = append(result, DayCounters{Day: day, Counters: counters})
	}
	return result, nil
}

// PruneBefore deletes counters for days strictly before cutoff.
func (s *InMemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	cutoffDay := Day(cutoff)

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for day, counters := range s.days {
		if day < cutoffDay {
			removed += int64(len(counters))
			delete(s.days, day)
		}
	}
	return removed, nil
}
