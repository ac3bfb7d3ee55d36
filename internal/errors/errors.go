// Package errors provides structured application errors with stable codes.
// Codes group failures by how the detector reacts to them: fail fast at load,
// degrade a feature, or drop a single frame.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Code classifies an AppError.
type Code string

const (
	CodeUnknown            Code = "UNKNOWN"
	CodeConfigInvalid      Code = "CONFIG_INVALID"
	CodeCalibrationInvalid Code = "CALIBRATION_INVALID"
	CodeFrameInvalid       Code = "FRAME_INVALID"
	CodeOCRInitFailed      Code = "OCR_INIT_FAILED"
	CodeOCRExtractFailed   Code = "OCR_EXTRACT_FAILED"
	CodeOCRUnavailable     Code = "OCR_UNAVAILABLE"
	CodeDiagnosticIO       Code = "DIAGNOSTIC_IO"
	CodeStoreFailed        Code = "STORE_FAILED"
	CodeSourceFailed       Code = "SOURCE_FAILED"
)

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Metadata[k])
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error chain carries a specific code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryable reports whether a failure is transient.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeDiagnosticIO, CodeStoreFailed, CodeSourceFailed:
		return true
	default:
		return false
	}
}
