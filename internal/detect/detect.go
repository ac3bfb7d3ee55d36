// Package detect classifies frames against calibrated pixel probes.
package detect

import (
	"github.com/GriffinCanCode/autovod/internal/calibration"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

// ProbeScore returns the fraction of pixels in p.Rect whose largest channel
// difference from p.Color is within p.Tolerance.
func ProbeScore(f *frame.PixelFrame, p calibration.Probe) float64 {
	total := p.Rect.Area()
	if total <= 0 {
		return 0
	}
	matched := 0
	for y := p.Rect.Y0; y < p.Rect.Y1; y++ {
		row := f.Pix[y*f.Stride:]
		for x := p.Rect.X0; x < p.Rect.X1; x++ {
			px := row[x*frame.BytesPerPixel : x*frame.BytesPerPixel+frame.BytesPerPixel]
			if maxChannelDiff(px, p.Color) <= p.Tolerance {
				matched++
			}
		}
	}
	return float64(matched) / float64(total)
}

func maxChannelDiff(px []byte, ref [4]byte) uint8 {
	var m uint8
	for c := 0; c < 4; c++ {
		d := px[c] - ref[c]
		if px[c] < ref[c] {
			d = ref[c] - px[c]
		}
		if d > m {
			m = d
		}
	}
	return m
}

// Classify returns the unweighted mean of all probe scores. Probes must lie
// inside the frame; the calibration table checks this at load time.
func Classify(f *frame.PixelFrame, probes []calibration.Probe) float64 {
	if len(probes) == 0 {
		return 0
	}
	var sum float64
	for _, p := range probes {
		sum += ProbeScore(f, p)
	}
	return sum / float64(len(probes))
}

// IsTargetScreen reports whether the mean probe score reaches threshold.
func IsTargetScreen(f *frame.PixelFrame, probes []calibration.Probe, threshold float64) bool {
	return Classify(f, probes) >= threshold
}

// Classifier binds a calibration table to the detection functions.
type Classifier struct {
	table *calibration.Table
}

// NewClassifier creates a classifier for a validated table.
func NewClassifier(t *calibration.Table) *Classifier {
	return &Classifier{table: t}
}

// Fits reports whether a frame has the table's resolution.
func (c *Classifier) Fits(f *frame.PixelFrame) bool {
	return f.Width == c.table.Width && f.Height == c.table.Height
}

// Score returns the mean probe score for f.
func (c *Classifier) Score(f *frame.PixelFrame) float64 {
	return Classify(f, c.table.Probes)
}

// Detect reports whether f is the target screen.
func (c *Classifier) Detect(f *frame.PixelFrame) bool {
	return IsTargetScreen(f, c.table.Probes, c.table.Threshold)
}
