package calibration

import (
	"testing"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

func TestLoadSmashUltimate(t *testing.T) {
	tbl, err := Load(SmashUltimate1080p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(tbl.Probes) != 6 {
		t.Errorf("len(Probes) = %d, want 6", len(tbl.Probes))
	}
	if len(tbl.Vocabulary) != 83 {
		t.Errorf("len(Vocabulary) = %d, want 83", len(tbl.Vocabulary))
	}
	if tbl.Vocabulary[0] != "MARIO" || tbl.Vocabulary[len(tbl.Vocabulary)-1] != "SORA" {
		t.Errorf("vocabulary order changed: first=%q last=%q", tbl.Vocabulary[0], tbl.Vocabulary[len(tbl.Vocabulary)-1])
	}
}

func TestNameBoxesResolve(t *testing.T) {
	tbl, err := Load(SmashUltimate1080p)
	if err != nil {
		t.Fatal(err)
	}
	want := []frame.Rect{
		{X0: 120, X1: 840, Y0: 0, Y1: 135},
		{X0: 1080, X1: 1800, Y0: 0, Y1: 135},
	}
	for i, b := range tbl.NameBoxes {
		if got := b.Resolve(tbl.Width, tbl.Height); got != want[i] {
			t.Errorf("box %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Table)
	}{
		{"probe past right edge", func(t *Table) { t.Probes[0].Rect.X1 = 1921 }},
		{"empty probe rect", func(t *Table) { t.Probes[1].Rect.Y1 = t.Probes[1].Rect.Y0 }},
		{"no probes", func(t *Table) { t.Probes = nil }},
		{"empty vocabulary", func(t *Table) { t.Vocabulary = nil }},
		{"zero denominator", func(t *Table) { t.NameBoxes[0].X0 = Fraction{1, 0} }},
		{"fraction above one", func(t *Table) { t.NameBoxes[1].X1 = Fraction{17, 16} }},
		{"threshold above one", func(t *Table) { t.Threshold = 1.5 }},
		{"zero match limit", func(t *Table) { t.MatchLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := smashUltimate1080p()
			tt.mutate(tbl)
			err := tbl.Validate()
			if !apperrors.IsCode(err, apperrors.CodeCalibrationInvalid) {
				t.Errorf("Validate() = %v, want CALIBRATION_INVALID", err)
			}
		})
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("n64-240p"); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("Load(unknown) = %v, want CONFIG_INVALID", err)
	}
}
