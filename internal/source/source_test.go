package source

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

func writePNG(t *testing.T, path string, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	fh, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	if err := png.Encode(fh, img); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, path, color.NRGBA{0x36, 0x43, 0x48, 0xFF})

	f, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Width != 3 || f.Height != 2 {
		t.Errorf("size = %dx%d", f.Width, f.Height)
	}
	if got := f.At(2, 1); got != [4]byte{0x36, 0x43, 0x48, 0xFF} {
		t.Errorf("At(2,1) = %v", got)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); !apperrors.IsCode(err, apperrors.CodeFrameInvalid) {
		t.Errorf("Decode() = %v, want FRAME_INVALID", err)
	}
}

func TestFilesReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "02.png"), color.NRGBA{2, 2, 2, 0xFF})
	writePNG(t, filepath.Join(dir, "01.png"), color.NRGBA{1, 1, 1, 0xFF})
	if err := os.WriteFile(filepath.Join(dir, "03.png"), []byte("truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	var got []byte
	src := NewFiles(filepath.Join(dir, "*.png"), time.Millisecond, false)
	err := src.Run(context.Background(), func(_ time.Time, f *frame.PixelFrame) {
		got = append(got, f.At(0, 0)[0])
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("replayed %v, want [1 2]", got)
	}
}

func TestFilesNoMatch(t *testing.T) {
	src := NewFiles(filepath.Join(t.TempDir(), "*.png"), time.Millisecond, false)
	err := src.Run(context.Background(), func(time.Time, *frame.PixelFrame) {})
	if !apperrors.IsCode(err, apperrors.CodeSourceFailed) {
		t.Errorf("Run() = %v, want SOURCE_FAILED", err)
	}
}

func TestFilesLoopStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), color.NRGBA{9, 9, 9, 0xFF})

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	src := NewFiles(filepath.Join(dir, "*.png"), time.Millisecond, true)
	err := src.Run(ctx, func(time.Time, *frame.PixelFrame) {
		n++
		if n == 3 {
			cancel()
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	if n < 3 {
		t.Errorf("emitted %d frames, want at least 3", n)
	}
}
