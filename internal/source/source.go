// Package source defines where frames come from.
package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // decoder registration
	_ "image/png"  // decoder registration
	"os"
	"time"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

// Emit receives one frame per tick. The frame is only valid for the duration
// of the call.
type Emit func(now time.Time, f *frame.PixelFrame)

// Source delivers frames until ctx is done or the source is exhausted.
type Source interface {
	Run(ctx context.Context, emit Emit) error
	Name() string
}

// Decode turns PNG or JPEG bytes into a compact frame. JPEG artifacts can push
// probe pixels past their tolerance; prefer PNG captures.
func Decode(data []byte) (*frame.PixelFrame, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFrameInvalid, "decode image")
	}
	return frame.FromImage(img), nil
}

// DecodeFile reads and decodes an image file.
func DecodeFile(path string) (*frame.PixelFrame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
