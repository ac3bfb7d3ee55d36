// Package frame holds the RGBA pixel buffer shared by detection, extraction and OCR.
package frame

import (
	"fmt"
	"image"
)

// BytesPerPixel is the size of one RGBA sample.
const BytesPerPixel = 4

// Rect is a half-open pixel rectangle: X0 <= x < X1, Y0 <= y < Y1.
type Rect struct {
	X0, X1 int
	Y0, Y1 int
}

// Dx returns the rectangle width.
func (r Rect) Dx() int { return r.X1 - r.X0 }

// Dy returns the rectangle height.
func (r Rect) Dy() int { return r.Y1 - r.Y0 }

// Area returns the number of pixels covered by r.
func (r Rect) Area() int { return r.Dx() * r.Dy() }

// In reports whether r is non-empty and lies inside a width x height frame.
func (r Rect) In(width, height int) bool {
	return r.X0 >= 0 && r.X0 < r.X1 && r.X1 <= width &&
		r.Y0 >= 0 && r.Y0 < r.Y1 && r.Y1 <= height
}

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d)x[%d,%d)", r.X0, r.X1, r.Y0, r.Y1)
}

// PixelFrame is a row-major RGBA buffer. Stride may exceed Width*4; padding bytes
// at the end of each row are never treated as pixels.
type PixelFrame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// New allocates a zeroed compact frame.
func New(width, height int) *PixelFrame {
	return &PixelFrame{
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Wrap borrows a source buffer without copying. The result must not outlive the
// buffer it wraps; use Clone to hand pixels to another goroutine.
func Wrap(width, height, stride int, pix []byte) (*PixelFrame, error) {
	f := &PixelFrame{Width: width, Height: height, Stride: stride, Pix: pix}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks dimensions, stride and buffer length.
func (f *PixelFrame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame: invalid size %dx%d", f.Width, f.Height)
	}
	if f.Stride < f.Width*BytesPerPixel {
		return fmt.Errorf("frame: stride %d below row size %d", f.Stride, f.Width*BytesPerPixel)
	}
	if need := (f.Height-1)*f.Stride + f.Width*BytesPerPixel; len(f.Pix) < need {
		return fmt.Errorf("frame: buffer holds %d bytes, need %d", len(f.Pix), need)
	}
	return nil
}

// Offset returns the index of pixel (x, y) in Pix.
func (f *PixelFrame) Offset(x, y int) int {
	return y*f.Stride + x*BytesPerPixel
}

// At returns the RGBA sample at (x, y).
func (f *PixelFrame) At(x, y int) [4]byte {
	i := f.Offset(x, y)
	return [4]byte{f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]}
}

// Set writes an RGBA sample at (x, y).
func (f *PixelFrame) Set(x, y int, c [4]byte) {
	i := f.Offset(x, y)
	copy(f.Pix[i:i+BytesPerPixel], c[:])
}

// Fill paints every pixel of r with c.
func (f *PixelFrame) Fill(r Rect, c [4]byte) {
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			f.Set(x, y, c)
		}
	}
}

// Clone returns an independent compact copy. Row padding is dropped.
func (f *PixelFrame) Clone() (*PixelFrame, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := New(f.Width, f.Height)
	row := f.Width * BytesPerPixel
	for y := 0; y < f.Height; y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+row], f.Pix[y*f.Stride:y*f.Stride+row])
	}
	return out, nil
}

// Image exposes the frame as an *image.NRGBA sharing the same buffer.
func (f *PixelFrame) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// FromImage copies any image into a compact frame.
func FromImage(img image.Image) *PixelFrame {
	b := img.Bounds()
	f := New(b.Dx(), b.Dy())
	if src, ok := img.(*image.NRGBA); ok {
		row := f.Width * BytesPerPixel
		for y := 0; y < f.Height; y++ {
			so := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(f.Pix[y*f.Stride:y*f.Stride+row], src.Pix[so:so+row])
		}
		return f
	}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a != 0 && a != 0xffff {
				// un-premultiply
				r = r * 0xffff / a
				g = g * 0xffff / a
				bl = bl * 0xffff / a
			}
			f.Set(x, y, [4]byte{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)})
		}
	}
	return f
}
