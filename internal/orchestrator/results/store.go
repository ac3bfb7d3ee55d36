// Package results keeps recent captures in memory and fans them out as events
package results

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/autovod/internal/orchestrator/screen"
)

// Store holds a bounded list of recent captures, oldest first.
type Store struct {
	mu       sync.RWMutex
	entries  []screen.Capture
	maxSize  int
	eventsCh chan screen.Capture
	dropped  uint64
}

// NewStore creates a results store.
func NewStore(maxEntries, eventBuffer int) *Store {
	return &Store{
		entries:  make([]screen.Capture, 0, maxEntries),
		maxSize:  maxEntries,
		eventsCh: make(chan screen.Capture, eventBuffer),
	}
}

// Add stores a capture, evicting the oldest beyond the size bound.
func (s *Store) Add(c screen.Capture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, c)
	if len(s.entries) > s.maxSize {
		s.entries = s.entries[len(s.entries)-s.maxSize:]
	}
}

// Recent returns up to n captures, newest first. n <= 0 returns all.
func (s *Store) Recent(n int) []screen.Capture {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]screen.Capture, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out
}

// Latest returns the newest capture.
func (s *Store) Latest() (screen.Capture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return screen.Capture{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the number of stored captures.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Events returns the channel of new captures.
func (s *Store) Events() <-chan screen.Capture {
	return s.eventsCh
}

// Emit sends a capture event (non-blocking). Events nobody reads are dropped.
func (s *Store) Emit(c screen.Capture) {
	select {
	case s.eventsCh <- c:
	default:
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped returns how many events were dropped on a full channel.
func (s *Store) Dropped() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// Sink adds and emits each capture. It satisfies screen.Sink.
func (s *Store) Sink(_ context.Context, c screen.Capture) {
	s.Add(c)
	s.Emit(c)
}
