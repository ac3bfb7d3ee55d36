// Package screen turns captured load-in frames into matched player names
package screen

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/autovod/internal/calibration"
	"github.com/GriffinCanCode/autovod/internal/diag"
	"github.com/GriffinCanCode/autovod/internal/extract"
	"github.com/GriffinCanCode/autovod/internal/frame"
	"github.com/GriffinCanCode/autovod/internal/fuzzy"
	"github.com/GriffinCanCode/autovod/internal/trace"
)

// Recognizer reads normalized text from one binarized name box.
type Recognizer interface {
	Recognize(ctx context.Context, f *frame.PixelFrame) (string, error)
}

// Capture is the result of processing one detected frame.
type Capture struct {
	ID          string         `json:"id"`
	Time        time.Time      `json:"time"`
	Calibration string         `json:"calibration"`
	Players     []fuzzy.Result `json:"players"`
	Dumped      bool           `json:"dumped"`
}

// Sink receives every completed capture.
type Sink func(ctx context.Context, c Capture)

// Processor handles frames staged by the scheduler.
type Processor struct {
	table   *calibration.Table
	ocr     Recognizer
	matcher *fuzzy.Matcher
	dumper  *diag.Dumper
	sinks   []Sink
	now     func() time.Time

	mu     sync.RWMutex
	latest Capture
}

// NewProcessor creates a capture processor. dumper may be nil.
func NewProcessor(table *calibration.Table, ocr Recognizer, matcher *fuzzy.Matcher, dumper *diag.Dumper, sinks ...Sink) *Processor {
	return &Processor{
		table:   table,
		ocr:     ocr,
		matcher: matcher,
		dumper:  dumper,
		sinks:   sinks,
		now:     time.Now,
	}
}

// Handle processes one owned frame. Its signature matches scheduler.Handler.
func (p *Processor) Handle(ctx context.Context, f *frame.PixelFrame) {
	ctx, span := trace.StartSpan(ctx, SpanName)
	defer span.Finish(ctx)
	log := trace.Logger(ctx)

	c, err := p.Process(ctx, f)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Warn("capture discarded", "error", err)
		return
	}
	span.SetAttr("capture_id", c.ID)
	span.SetAttr("matched", matchedCount(c.Players))

	for i, r := range c.Players {
		if r.Matched {
			log.Info("player matched", "slot", i, "name", r.Name, "raw", r.Raw)
		} else {
			log.Info("player not matched", "slot", i, "raw", r.Raw)
		}
	}

	p.mu.Lock()
	p.latest = c
	p.mu.Unlock()

	for _, sink := range p.sinks {
		sink(ctx, c)
	}
}

// Process extracts, recognizes and matches every name box of f.
func (p *Processor) Process(ctx context.Context, f *frame.PixelFrame) (Capture, error) {
	c := Capture{
		ID:          uuid.NewString(),
		Time:        p.now(),
		Calibration: p.table.Name,
	}

	boxes, err := extract.NameBoxes(f, p.table)
	if err != nil {
		return c, err
	}

	if p.dumper.Enabled() {
		dumped, err := p.dumper.Dump(ctx, f, boxes)
		if err != nil {
			trace.Logger(ctx).Warn("diagnostic dump failed", "dir", p.dumper.Dir(), "error", err)
		}
		c.Dumped = dumped
	}

	c.Players = make([]fuzzy.Result, len(boxes))
	for i, box := range boxes {
		text, err := p.ocr.Recognize(ctx, box)
		if err != nil {
			trace.Logger(ctx).Warn("ocr failed", "slot", i, "error", err)
		}
		c.Players[i] = p.matcher.Match(text)
	}
	return c, nil
}

// Latest returns the most recent capture, if any.
func (p *Processor) Latest() (Capture, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.latest.ID != ""
}

func matchedCount(rs []fuzzy.Result) int {
	n := 0
	for _, r := range rs {
		if r.Matched {
			n++
		}
	}
	return n
}
