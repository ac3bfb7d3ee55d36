package ocr

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
	"github.com/GriffinCanCode/autovod/internal/resilience"
	"github.com/GriffinCanCode/autovod/internal/textnorm"
)

// Adapter wraps an engine with normalization and a circuit breaker. A nil
// engine makes the adapter a no-op that always returns empty text.
type Adapter struct {
	engine   Engine
	breaker  *resilience.Breaker
	degraded sync.Once
	closed   atomic.Bool
}

// NewAdapter takes ownership of engine, which may be nil.
func NewAdapter(engine Engine, cfg resilience.Config) *Adapter {
	return &Adapter{engine: engine, breaker: resilience.NewBreaker(cfg)}
}

// Available reports whether recognition can currently run. An open breaker
// counts as available again once its reset timeout has passed.
func (a *Adapter) Available() bool {
	return a.engine != nil && !a.closed.Load() && a.breaker.Ready()
}

// Recognize returns normalized text for one binarized box. Empty text with a
// nil error means the engine is absent.
func (a *Adapter) Recognize(ctx context.Context, f *frame.PixelFrame) (string, error) {
	if a.engine == nil || a.closed.Load() {
		a.degraded.Do(func() {
			slog.Warn("ocr engine unavailable, captures will report no match")
		})
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	raw, err := resilience.ExecuteWithResult(a.breaker, func() (string, error) {
		return a.engine.Recognize(f)
	})
	if errors.Is(err, resilience.ErrOpen) {
		return "", apperrors.Wrap(err, apperrors.CodeOCRUnavailable, "ocr engine failing")
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeOCRExtractFailed, "recognize name box")
	}
	return textnorm.Normalize(raw), nil
}

// Close releases the engine once.
func (a *Adapter) Close() error {
	if a.engine == nil || a.closed.Swap(true) {
		return nil
	}
	return a.engine.Close()
}
