// Package screen grabs the desktop with the platform screenshot tool and
// serves it as a frame source.
package screen

import (
	"context"
	"crypto/md5"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
	"github.com/GriffinCanCode/autovod/internal/source"
)

// Capturer returns encoded screenshots.
type Capturer interface {
	Capture(ctx context.Context) ([]byte, error)
	Close()
}

// backend writes one lossless screenshot to path.
type backend interface {
	captureTo(ctx context.Context, path string) error
}

type fileCapturer struct {
	backend
	tempDir string
}

func newFileCapturer(b backend) *fileCapturer {
	dir, err := os.MkdirTemp("", "autovod-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		dir = os.TempDir()
	}
	return &fileCapturer{backend: b, tempDir: dir}
}

func (c *fileCapturer) Capture(ctx context.Context) ([]byte, error) {
	path := filepath.Join(c.tempDir, "screenshot.png")
	if err := c.captureTo(ctx, path); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSourceFailed, "screenshot")
	}
	defer os.Remove(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeSourceFailed, "read screenshot")
	}
	return data, nil
}

func (c *fileCapturer) Close() {
	if c.tempDir != "" && c.tempDir != os.TempDir() {
		os.RemoveAll(c.tempDir)
	}
}

// Source polls a Capturer at a fixed rate. Unchanged screenshots reuse the
// previously decoded frame.
type Source struct {
	capturer Capturer
	every    time.Duration

	lastHash [16]byte
	last     *frame.PixelFrame
}

// NewSource wraps a capturer; it takes ownership and closes it when Run returns.
func NewSource(c Capturer, every time.Duration) *Source {
	return &Source{capturer: c, every: every}
}

func (s *Source) Name() string { return "screen" }

func (s *Source) Run(ctx context.Context, emit source.Emit) error {
	defer s.capturer.Close()
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			f, err := s.grab(ctx)
			if err != nil {
				// log the first failure of a streak, then every 100th
				if failures%100 == 0 {
					slog.Warn("screen capture failed", "error", err, "streak", failures+1)
				}
				failures++
				continue
			}
			failures = 0
			emit(now, f)
		}
	}
}

func (s *Source) grab(ctx context.Context) (*frame.PixelFrame, error) {
	data, err := s.capturer.Capture(ctx)
	if err != nil {
		return nil, err
	}
	hash := md5.Sum(data)
	if s.last != nil && hash == s.lastHash {
		return s.last, nil
	}
	f, err := source.Decode(data)
	if err != nil {
		return nil, err
	}
	s.lastHash, s.last = hash, f
	return f, nil
}
