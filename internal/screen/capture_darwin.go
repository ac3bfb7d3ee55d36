//go:build darwin

package screen

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

type darwinBackend struct{}

func (darwinBackend) captureTo(ctx context.Context, path string) error {
	// -x: no sound, -m: main display only
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-m", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("screencapture: %w: %s", err, stderr.String())
	}
	return nil
}

// New creates the platform screen capturer.
func New() Capturer {
	return newFileCapturer(darwinBackend{})
}
