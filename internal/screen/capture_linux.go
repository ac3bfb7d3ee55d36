//go:build linux

package screen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

type linuxBackend struct{}

func (linuxBackend) captureTo(ctx context.Context, path string) error {
	// grim for wayland, then the X11 tools
	var cmd *exec.Cmd
	switch {
	case has("grim"):
		cmd = exec.CommandContext(ctx, "grim", "-t", "png", path)
	case has("gnome-screenshot"):
		cmd = exec.CommandContext(ctx, "gnome-screenshot", "-f", path)
	case has("scrot"):
		cmd = exec.CommandContext(ctx, "scrot", "-o", path)
	default:
		return errors.New("no screenshot tool found (install grim, gnome-screenshot or scrot)")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", cmd.Args[0], err, stderr.String())
	}
	return nil
}

func has(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

// New creates the platform screen capturer.
func New() Capturer {
	return newFileCapturer(linuxBackend{})
}
