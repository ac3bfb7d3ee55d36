// Package scheduler hands detected frames from the producer (the frame source)
// to a single consumer through a one-slot mailbox.
//
// The producer classifies on a cooldown-gated cadence. A positive frame is
// copied and staged only when the slot is idle; otherwise it is dropped. The
// consumer blocks until a frame is staged or the scheduler stops.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/GriffinCanCode/autovod/internal/frame"
)

// Outcome is the result of one producer tick.
type Outcome int

const (
	Skipped   Outcome = iota // cooldown not elapsed or scheduler stopped
	Mismatch                 // frame size differs from the calibration
	Discarded                // classified, not the target screen
	Dropped                  // target screen, slot occupied
	Captured                 // target screen, staged for the consumer
	Failed                   // invalid frame or copy failure
)

func (o Outcome) String() string {
	return [...]string{"skipped", "mismatch", "discarded", "dropped", "captured", "failed"}[o]
}

// SlotState is the mailbox state.
type SlotState int

const (
	Idle SlotState = iota
	Staged
	Processing
)

func (s SlotState) String() string {
	return [...]string{"idle", "staged", "processing"}[s]
}

// Classifier decides whether a frame is the target screen.
type Classifier interface {
	Fits(f *frame.PixelFrame) bool
	Detect(f *frame.PixelFrame) bool
}

// Handler processes one staged frame. The frame is owned by the handler.
type Handler func(ctx context.Context, f *frame.PixelFrame)

// Config holds the two producer cooldowns. With Warmup set, both cooldowns
// start running at the first tick instead of being already elapsed, so the
// first capture happens no earlier than CaptureInterval after startup.
type Config struct {
	DetectInterval  time.Duration
	CaptureInterval time.Duration
	Warmup          bool
}

// DefaultConfig polls every 50ms and captures at most every 10s, starting
// both cooldowns at the first tick.
func DefaultConfig() Config {
	return Config{DetectInterval: 50 * time.Millisecond, CaptureInterval: 10 * time.Second, Warmup: true}
}

// Stats counts tick outcomes.
type Stats struct {
	Ticks       uint64    `json:"ticks"`
	Classified  uint64    `json:"classified"`
	Discarded   uint64    `json:"discarded"`
	Captured    uint64    `json:"captured"`
	Dropped     uint64    `json:"dropped"`
	Mismatched  uint64    `json:"mismatched"`
	Failed      uint64    `json:"failed"`
	Processed   uint64    `json:"processed"`
	Slot        string    `json:"slot"`
	LastCapture time.Time `json:"last_capture,omitzero"`
}

// Scheduler is the single-slot producer/consumer hand-off. Tick must be called
// from one goroutine at a time; Run from exactly one consumer goroutine.
type Scheduler struct {
	cfg        Config
	classifier Classifier

	mu          sync.Mutex
	cond        *sync.Cond
	slot        *frame.PixelFrame
	state       SlotState
	stopped     bool
	started     bool
	nextDetect  time.Time
	nextCapture time.Time
	badSize     [2]int
	stats       Stats
}

// New creates a scheduler. Without Warmup both cooldowns are eligible on the
// first tick.
func New(cfg Config, c Classifier) *Scheduler {
	s := &Scheduler{cfg: cfg, classifier: c}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Tick offers one frame at time now. f may be a borrowed buffer; it is copied
// before being staged and never retained.
func (s *Scheduler) Tick(now time.Time, f *frame.PixelFrame) Outcome {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return Skipped
	}
	s.stats.Ticks++
	if !s.started {
		s.started = true
		if s.cfg.Warmup {
			s.nextDetect = now.Add(s.cfg.DetectInterval)
			s.nextCapture = now.Add(s.cfg.CaptureInterval)
		}
	}
	if now.Before(s.nextDetect) || now.Before(s.nextCapture) {
		s.mu.Unlock()
		return Skipped
	}
	s.nextDetect = now.Add(s.cfg.DetectInterval)
	s.mu.Unlock()

	if outcome := s.classify(f); outcome != Captured {
		return outcome
	}

	s.mu.Lock()
	if s.state != Idle {
		s.stats.Dropped++
		s.mu.Unlock()
		return Dropped
	}
	s.mu.Unlock()

	// Copy outside the lock; only this producer can fill the slot.
	owned, err := f.Clone()
	if err != nil {
		slog.Error("frame copy failed, discarding", "error", err)
		s.count(&s.stats.Failed)
		return Failed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Skipped
	}
	if s.state != Idle {
		s.stats.Dropped++
		return Dropped
	}
	s.slot = owned
	s.state = Staged
	s.nextCapture = now.Add(s.cfg.CaptureInterval)
	s.stats.Captured++
	s.stats.LastCapture = now
	s.cond.Signal()
	return Captured
}

// classify returns Captured for a positive frame, the final outcome otherwise.
func (s *Scheduler) classify(f *frame.PixelFrame) Outcome {
	if err := f.Validate(); err != nil {
		slog.Warn("invalid frame, discarding", "error", err)
		s.count(&s.stats.Failed)
		return Failed
	}
	if !s.classifier.Fits(f) {
		s.mu.Lock()
		s.stats.Mismatched++
		size := [2]int{f.Width, f.Height}
		changed := size != s.badSize
		s.badSize = size
		s.mu.Unlock()
		if changed {
			slog.Warn("frame size does not match calibration, skipping", "width", f.Width, "height", f.Height)
		}
		return Mismatch
	}

	positive := s.classifier.Detect(f)

	s.mu.Lock()
	s.stats.Classified++
	s.badSize = [2]int{}
	if !positive {
		s.stats.Discarded++
	}
	s.mu.Unlock()
	if !positive {
		return Discarded
	}
	return Captured
}

func (s *Scheduler) count(c *uint64) {
	s.mu.Lock()
	*c++
	s.mu.Unlock()
}

// Run consumes staged frames until ctx is done or Stop is called. The handler
// runs without the mailbox lock held.
func (s *Scheduler) Run(ctx context.Context, h Handler) {
	unhook := context.AfterFunc(ctx, s.Stop)
	defer unhook()

	for {
		s.mu.Lock()
		for s.slot == nil && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			// release a frame staged after the last handoff
			s.slot = nil
			s.state = Idle
			s.mu.Unlock()
			return
		}
		f := s.slot
		s.slot = nil
		s.state = Processing
		s.mu.Unlock()

		h(ctx, f)

		s.mu.Lock()
		s.state = Idle
		s.stats.Processed++
		s.mu.Unlock()
	}
}

// Stop wakes the consumer and makes further ticks no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// State returns the mailbox state.
func (s *Scheduler) State() SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Slot = s.state.String()
	return st
}
