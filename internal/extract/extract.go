// Package extract crops name boxes out of a frame and binarizes them for OCR.
package extract

import (
	"fmt"

	"github.com/GriffinCanCode/autovod/internal/calibration"
	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

// BrightCutoff is the per-channel level at or above which a pixel counts as text.
const BrightCutoff = 200

var (
	black = [4]byte{0, 0, 0, 0xFF}
	white = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}
)

// Binarize maps a light pixel (R, G and B all >= BrightCutoff) to opaque black
// and anything else to opaque white.
func Binarize(px [4]byte) [4]byte {
	if px[0] >= BrightCutoff && px[1] >= BrightCutoff && px[2] >= BrightCutoff {
		return black
	}
	return white
}

// Extract returns a new compact frame of r's size holding the binarized pixels.
func Extract(f *frame.PixelFrame, r frame.Rect) (*frame.PixelFrame, error) {
	if !r.In(f.Width, f.Height) {
		return nil, apperrors.Newf(apperrors.CodeFrameInvalid, "extract %s from %dx%d frame", r, f.Width, f.Height)
	}
	out := frame.New(r.Dx(), r.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			out.Set(x, y, Binarize(f.At(r.X0+x, r.Y0+y)))
		}
	}
	return out, nil
}

// NameBoxes extracts every name box of the table from f, in table order.
func NameBoxes(f *frame.PixelFrame, t *calibration.Table) ([]*frame.PixelFrame, error) {
	boxes := make([]*frame.PixelFrame, 0, len(t.NameBoxes))
	for i, b := range t.NameBoxes {
		out, err := Extract(f, b.Resolve(f.Width, f.Height))
		if err != nil {
			return nil, fmt.Errorf("name box %d: %w", i, err)
		}
		boxes = append(boxes, out)
	}
	return boxes, nil
}
