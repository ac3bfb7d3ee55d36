//go:build windows

package screen

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

const psCapture = `Add-Type -AssemblyName System.Windows.Forms,System.Drawing
$b = [System.Windows.Forms.Screen]::PrimaryScreen.Bounds
$bmp = New-Object System.Drawing.Bitmap $b.Width, $b.Height
$g = [System.Drawing.Graphics]::FromImage($bmp)
$g.CopyFromScreen($b.Location, [System.Drawing.Point]::Empty, $b.Size)
$bmp.Save($args[0], [System.Drawing.Imaging.ImageFormat]::Png)`

type windowsBackend struct{}

func (windowsBackend) captureTo(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", psCapture, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("powershell capture: %w: %s", err, stderr.String())
	}
	return nil
}

// New creates the platform screen capturer.
func New() Capturer {
	return newFileCapturer(windowsBackend{})
}
