// Package ocr is the boundary to the text recognition engine.
package ocr

import "github.com/GriffinCanCode/autovod/internal/frame"

// Whitelist is every character a fighter name can contain.
const Whitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789&./- "

// Engine recognizes text in a binarized name box. Engines are not safe for
// concurrent use; one goroutine owns an engine from Open to Close.
type Engine interface {
	Recognize(f *frame.PixelFrame) (string, error)
	Close() error
}

// Options configures an engine.
type Options struct {
	Language string
	DPI      int
}

// DefaultOptions returns English at 700 DPI, tuned for the small in-game font.
func DefaultOptions() Options {
	return Options{Language: "eng", DPI: 700}
}
