// Package orchestrator wires the frame source, scheduler and capture processor
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/autovod/internal/calibration"
	"github.com/GriffinCanCode/autovod/internal/detect"
	"github.com/GriffinCanCode/autovod/internal/diag"
	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
	"github.com/GriffinCanCode/autovod/internal/fuzzy"
	"github.com/GriffinCanCode/autovod/internal/orchestrator/history"
	"github.com/GriffinCanCode/autovod/internal/orchestrator/results"
	"github.com/GriffinCanCode/autovod/internal/orchestrator/screen"
	"github.com/GriffinCanCode/autovod/internal/resilience"
	"github.com/GriffinCanCode/autovod/internal/scheduler"
	"github.com/GriffinCanCode/autovod/internal/source"
	"github.com/GriffinCanCode/autovod/internal/store"
	"github.com/GriffinCanCode/autovod/internal/syncx"
	"github.com/GriffinCanCode/autovod/internal/trace"
)

// CaptureEvent re-exported for API consumers
type CaptureEvent = screen.Capture

// ErrHistoryDisabled is returned by history queries when no store is configured.
var ErrHistoryDisabled = apperrors.New(apperrors.CodeConfigInvalid, "match history disabled")

// OCR is the recognizer the manager drives, with its health.
type OCR interface {
	screen.Recognizer
	Available() bool
}

// HistoryStore persists and queries match history.
type HistoryStore interface {
	history.Inserter
	Recent(ctx context.Context, limit int) ([]store.Record, error)
	Counts(ctx context.Context) ([]store.NameCount, error)
}

// Options configures a Manager. Dumper and History may be nil.
type Options struct {
	Table          *calibration.Table
	Source         source.Source
	OCR            OCR
	Dumper         *diag.Dumper
	History        HistoryStore
	Scheduler      scheduler.Config
	MatchThreshold int
}

// Stats is a snapshot of the pipeline.
type Stats struct {
	Scheduler     scheduler.Stats `json:"scheduler"`
	Detecting     bool            `json:"detecting"`
	OCRAvailable  bool            `json:"ocr_available"`
	Source        string          `json:"source"`
	Calibration   string          `json:"calibration"`
	Results       int             `json:"results"`
	EventsDropped uint64          `json:"events_dropped"`
}

// Manager coordinates the capture pipeline.
type Manager struct {
	table   *calibration.Table
	src     source.Source
	ocr     OCR
	sched   *scheduler.Scheduler
	proc    *screen.Processor
	results *results.Store
	db      HistoryStore
	batcher *history.Batcher
	retry   resilience.RetryConfig

	detecting *syncx.Value[bool]

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a manager. Detection starts enabled.
func New(opts Options) *Manager {
	m := &Manager{
		table:     opts.Table,
		src:       opts.Source,
		ocr:       opts.OCR,
		sched:     scheduler.New(opts.Scheduler, detect.NewClassifier(opts.Table)),
		results:   results.NewStore(ResultsMaxEntries, ResultsEventBuffer),
		db:        opts.History,
		detecting: syncx.NewValue(true),
		retry: resilience.RetryConfig{
			MaxRetries:   SourceMaxRestarts,
			BaseDelay:    SourceRestartDelay,
			MaxDelay:     SourceMaxDelay,
			JitterFactor: resilience.DefaultJitterFactor,
			IsRetryable:  apperrors.IsRetryable,
		},
	}

	threshold := opts.MatchThreshold
	if threshold <= 0 {
		threshold = opts.Table.MatchLimit
	}
	sinks := []screen.Sink{m.results.Sink}
	if opts.History != nil {
		m.batcher = history.NewBatcher(opts.History, HistoryBatchSize, HistoryFlushDelay)
		sinks = append(sinks, m.batcher.Sink)
	}
	m.proc = screen.NewProcessor(opts.Table, opts.OCR, fuzzy.NewMatcher(opts.Table.Vocabulary, threshold), opts.Dumper, sinks...)
	return m
}

// Start launches the consumer and the source loop.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	trace.Logger(ctx).Info("pipeline starting",
		"source", m.src.Name(), "calibration", m.table.Name, "ocr_available", m.ocr.Available())

	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.sched.Run(ctx, m.proc.Handle)
	}()
	go m.sourceLoop(ctx)
	return nil
}

func (m *Manager) sourceLoop(ctx context.Context) {
	defer m.wg.Done()
	log := trace.Logger(ctx)

	err := resilience.Retry(ctx, m.retry, func() error {
		err := m.src.Run(ctx, m.emit)
		if err != nil && ctx.Err() == nil {
			log.Warn("frame source failed", "source", m.src.Name(), "error", err)
		}
		return err
	})
	switch {
	case ctx.Err() != nil:
	case err != nil:
		log.Error("frame source stopped", "source", m.src.Name(), "error", err)
	default:
		log.Info("frame source finished", "source", m.src.Name())
	}
}

// emit runs on the source's goroutine; f may be borrowed.
func (m *Manager) emit(now time.Time, f *frame.PixelFrame) {
	if !m.detecting.Load() {
		return
	}
	if out := m.sched.Tick(now, f); out == scheduler.Dropped {
		trace.Logger(context.Background()).Debug("load-in screen dropped, capture in flight")
	}
}

// Tick offers one frame directly, bypassing the source.
func (m *Manager) Tick(now time.Time, f *frame.PixelFrame) scheduler.Outcome {
	if !m.detecting.Load() {
		return scheduler.Skipped
	}
	return m.sched.Tick(now, f)
}

// Stop cancels the pipeline and flushes pending history.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.sched.Stop()
	m.wg.Wait()
	if m.batcher != nil {
		m.batcher.Stop()
	}
}

// SetDetection enables or disables classification of incoming frames.
func (m *Manager) SetDetection(enabled bool) {
	if m.detecting.Swap(enabled) != enabled {
		trace.Logger(context.Background()).Info("detection state changed", "enabled", enabled)
	}
}

// Detecting reports whether detection is enabled.
func (m *Manager) Detecting() bool {
	return m.detecting.Load()
}

// OCRAvailable reports whether the OCR engine can run.
func (m *Manager) OCRAvailable() bool {
	return m.ocr.Available()
}

// CaptureEvents returns the channel of completed captures.
func (m *Manager) CaptureEvents() <-chan CaptureEvent {
	return m.results.Events()
}

// Recent returns up to n captures, newest first.
func (m *Manager) Recent(n int) []CaptureEvent {
	return m.results.Recent(n)
}

// Latest returns the newest capture.
func (m *Manager) Latest() (CaptureEvent, bool) {
	return m.results.Latest()
}

// History returns stored player records, newest first.
func (m *Manager) History(ctx context.Context, limit int) ([]store.Record, error) {
	if m.db == nil {
		return nil, ErrHistoryDisabled
	}
	return m.db.Recent(ctx, limit)
}

// Counts returns how often each fighter was matched.
func (m *Manager) Counts(ctx context.Context) ([]store.NameCount, error) {
	if m.db == nil {
		return nil, ErrHistoryDisabled
	}
	return m.db.Counts(ctx)
}

// Stats returns a pipeline snapshot.
func (m *Manager) Stats() Stats {
	return Stats{
		Scheduler:     m.sched.Stats(),
		Detecting:     m.detecting.Load(),
		OCRAvailable:  m.ocr.Available(),
		Source:        m.src.Name(),
		Calibration:   m.table.Name,
		Results:       m.results.Len(),
		EventsDropped: m.results.Dropped(),
	}
}
