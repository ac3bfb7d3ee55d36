// Package diag writes name boxes and the full frame as PNG files for
// calibration work. Failures never reach the capture path.
package diag

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/corona10/goimagehash"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
	"github.com/GriffinCanCode/autovod/internal/resilience"
)

// Perceptual hash distance at or below which two frames count as the same screen.
const MaxHashDistance = 4

// FullFrameName is the file holding the whole captured frame.
const FullFrameName = "both.png"

// BoxName returns the file name of name box i.
func BoxName(i int) string {
	return fmt.Sprintf("character%d.png", i)
}

// Dumper writes diagnostic images into one directory. A Dumper with an empty
// directory does nothing.
type Dumper struct {
	dir    string
	dedupe bool
	retry  resilience.RetryConfig
	enc    png.Encoder

	mu       sync.Mutex
	lastHash *goimagehash.ImageHash
}

// New creates a dumper. With dedupe set, a frame perceptually identical to
// the last written one is skipped.
func New(dir string, dedupe bool) *Dumper {
	return &Dumper{
		dir:    dir,
		dedupe: dedupe,
		retry:  resilience.DiagnosticRetryConfig(),
		enc:    png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

// Enabled reports whether dumps are written.
func (d *Dumper) Enabled() bool { return d != nil && d.dir != "" }

// Dir returns the output directory.
func (d *Dumper) Dir() string { return d.dir }

// Dump writes each box and the full frame. It returns false when the frame was
// skipped as a duplicate.
func (d *Dumper) Dump(ctx context.Context, full *frame.PixelFrame, boxes []*frame.PixelFrame) (bool, error) {
	if !d.Enabled() {
		return false, nil
	}
	if d.dedupe && d.duplicate(full) {
		slog.Debug("diagnostic dump skipped, frame unchanged")
		return false, nil
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return false, apperrors.Wrap(err, apperrors.CodeDiagnosticIO, "create output dir").WithMetadata("dir", d.dir)
	}
	for i, b := range boxes {
		if err := d.write(ctx, BoxName(i), b); err != nil {
			return false, err
		}
	}
	if err := d.write(ctx, FullFrameName, full); err != nil {
		return false, err
	}
	return true, nil
}

func (d *Dumper) duplicate(f *frame.PixelFrame) bool {
	hash, err := goimagehash.PerceptionHash(f.Image())
	if err != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastHash != nil {
		if dist, err := d.lastHash.Distance(hash); err == nil && dist <= MaxHashDistance {
			return true
		}
	}
	d.lastHash = hash
	return false
}

// write encodes to a temp file and renames it so readers never see a partial PNG.
func (d *Dumper) write(ctx context.Context, name string, f *frame.PixelFrame) error {
	path := filepath.Join(d.dir, name)
	return resilience.Retry(ctx, d.retry, func() error {
		tmp, err := os.CreateTemp(d.dir, "."+name+".*")
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeDiagnosticIO, "create temp file").WithMetadata("path", path)
		}
		defer os.Remove(tmp.Name())
		if err := d.enc.Encode(tmp, f.Image()); err != nil {
			tmp.Close()
			return apperrors.Wrap(err, apperrors.CodeDiagnosticIO, "encode png").WithMetadata("path", path)
		}
		if err := tmp.Close(); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDiagnosticIO, "close png").WithMetadata("path", path)
		}
		if err := os.Rename(tmp.Name(), path); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDiagnosticIO, "rename png").WithMetadata("path", path)
		}
		return nil
	})
}
