// Package calibration holds the per-title, per-resolution constants used to
// recognize a load-in screen: pixel probes, name box locations and the
// character vocabulary.
package calibration

import (
	"fmt"
	"sort"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

// Probe is a calibrated rectangle expected to hold a single color.
type Probe struct {
	Label     string
	Color     [4]byte
	Tolerance uint8
	Rect      frame.Rect
}

// Fraction is num/den of a frame dimension, resolved with integer math.
type Fraction struct {
	Num, Den int
}

// Of returns size*Num/Den.
func (f Fraction) Of(size int) int {
	return size * f.Num / f.Den
}

func (f Fraction) valid() bool {
	return f.Den > 0 && f.Num >= 0 && f.Num <= f.Den
}

// Box locates a name box as fractions of the frame size.
type Box struct {
	X0, X1 Fraction
	Y0, Y1 Fraction
}

// Resolve converts the box to pixel coordinates for a width x height frame.
func (b Box) Resolve(width, height int) frame.Rect {
	return frame.Rect{
		X0: b.X0.Of(width), X1: b.X1.Of(width),
		Y0: b.Y0.Of(height), Y1: b.Y1.Of(height),
	}
}

// Table is one calibration target.
type Table struct {
	Name       string
	Width      int
	Height     int
	Probes     []Probe
	Threshold  float64 // mean probe score required for a positive classification
	NameBoxes  []Box
	Vocabulary []string
	MatchLimit int // default Levenshtein threshold (strict)
}

// Validate fails fast on malformed calibration data.
func (t *Table) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.Newf(apperrors.CodeCalibrationInvalid, format, args...).
			WithMetadata("table", t.Name)
	}
	if t.Width <= 0 || t.Height <= 0 {
		return invalid("resolution %dx%d", t.Width, t.Height)
	}
	if len(t.Probes) == 0 {
		return invalid("no probes")
	}
	for i, p := range t.Probes {
		if !p.Rect.In(t.Width, t.Height) {
			return invalid("probe %d (%s) rect %s outside %dx%d", i, p.Label, p.Rect, t.Width, t.Height)
		}
	}
	if t.Threshold <= 0 || t.Threshold > 1 {
		return invalid("threshold %v outside (0,1]", t.Threshold)
	}
	if len(t.NameBoxes) == 0 {
		return invalid("no name boxes")
	}
	for i, b := range t.NameBoxes {
		for _, f := range []Fraction{b.X0, b.X1, b.Y0, b.Y1} {
			if !f.valid() {
				return invalid("name box %d fraction %d/%d", i, f.Num, f.Den)
			}
		}
		if r := b.Resolve(t.Width, t.Height); !r.In(t.Width, t.Height) {
			return invalid("name box %d resolves to empty rect %s", i, r)
		}
	}
	if len(t.Vocabulary) == 0 {
		return invalid("empty vocabulary")
	}
	if t.MatchLimit <= 0 {
		return invalid("match limit %d", t.MatchLimit)
	}
	return nil
}

var registry = map[string]func() *Table{
	SmashUltimate1080p: smashUltimate1080p,
}

// Load returns a validated copy of the named table.
func Load(name string) (*Table, error) {
	build, ok := registry[name]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeConfigInvalid, "unknown calibration %q (known: %v)", name, Names())
	}
	t := build()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}
	return t, nil
}

// Names lists the registered tables.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Reference paints every probe rectangle with its expected color on a black
// frame of the table's resolution. The result classifies as the target screen.
func (t *Table) Reference() *frame.PixelFrame {
	f := frame.New(t.Width, t.Height)
	f.Fill(frame.Rect{X0: 0, X1: t.Width, Y0: 0, Y1: t.Height}, [4]byte{0, 0, 0, 0xFF})
	for _, p := range t.Probes {
		f.Fill(p.Rect, p.Color)
	}
	return f
}
