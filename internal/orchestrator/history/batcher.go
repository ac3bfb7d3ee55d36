// Package history batches capture results into the match history store
package history

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/autovod/internal/orchestrator/screen"
	"github.com/GriffinCanCode/autovod/internal/resilience"
	"github.com/GriffinCanCode/autovod/internal/store"
	"github.com/GriffinCanCode/autovod/internal/trace"
)

// Inserter persists history records.
type Inserter interface {
	Insert(ctx context.Context, recs []store.Record) error
}

// Batcher accumulates player records and flushes them in batches.
type Batcher struct {
	db         Inserter
	retry      resilience.RetryConfig
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []store.Record
	timer      *time.Timer
	wg         sync.WaitGroup
	stopped    bool
}

// NewBatcher creates a history batcher.
func NewBatcher(db Inserter, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultBatcherMaxSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultBatcherFlushDelay
	}
	return &Batcher{
		db:         db,
		retry:      resilience.DefaultRetryConfig(),
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]store.Record, 0, maxSize),
	}
}

// Records converts a capture into one record per player slot.
func Records(c screen.Capture) []store.Record {
	recs := make([]store.Record, len(c.Players))
	for i, p := range c.Players {
		recs[i] = store.Record{
			CaptureID:   c.ID,
			Slot:        i,
			Name:        p.Name,
			Raw:         p.Raw,
			Matched:     p.Matched,
			Calibration: c.Calibration,
			CapturedAt:  c.Time,
		}
	}
	return recs
}

// Add queues a capture's records for batched storage.
func (b *Batcher) Add(c screen.Capture) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.items = append(b.items, Records(c)...)

	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

// Sink adds each capture. It satisfies screen.Sink.
func (b *Batcher) Sink(_ context.Context, c screen.Capture) {
	b.Add(c)
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.items) == 0 {
		return
	}
	items := b.items
	b.items = make([]store.Record, 0, b.maxSize)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, span := trace.StartSpan(context.Background(), "history_batch_flush")
		defer span.Finish(ctx)
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		err := resilience.Retry(ctx, b.retry, func() error {
			return b.db.Insert(ctx, items)
		})
		if err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("history flush failed", "error", err, "count", len(items))
			return
		}
		log.Debug("history stored", "count", len(items))
	}()
}

// Flush forces immediate flush of pending records.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes remaining records and waits for in-flight writes.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
