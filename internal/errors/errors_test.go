package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := Wrap(errors.New("disk full"), CodeDiagnosticIO, "write png").
		WithMetadata("path", "/tmp/a.png").
		WithMetadata("box", "0")

	want := "[DIAGNOSTIC_IO] write png box=0 path=/tmp/a.png caused by: disk full"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeThroughWrapping(t *testing.T) {
	base := New(CodeCalibrationInvalid, "probe out of bounds")
	wrapped := fmt.Errorf("load table: %w", base)

	if !IsCode(wrapped, CodeCalibrationInvalid) {
		t.Error("IsCode should see through fmt wrapping")
	}
	if IsCode(nil, CodeCalibrationInvalid) {
		t.Error("nil error has no code")
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should report CodeUnknown")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{New(CodeDiagnosticIO, "x"), true},
		{New(CodeStoreFailed, "x"), true},
		{New(CodeConfigInvalid, "x"), false},
		{New(CodeOCRExtractFailed, "x"), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrapf(cause, CodeStoreFailed, "insert %d rows", 3)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find cause")
	}
	if err.Message != "insert 3 rows" {
		t.Errorf("Message = %q", err.Message)
	}
}
