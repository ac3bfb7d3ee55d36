package ocr

import (
	"bytes"
	"fmt"
	"image/png"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/GriffinCanCode/autovod/internal/errors"
	"github.com/GriffinCanCode/autovod/internal/frame"
)

// Tesseract runs recognition through libtesseract.
type Tesseract struct {
	client *gosseract.Client
	enc    png.Encoder
	buf    bytes.Buffer
}

// OpenTesseract configures a client and runs one recognition on a blank box so
// missing language data or a broken install fails here rather than per frame.
func OpenTesseract(opts Options) (*Tesseract, error) {
	c := gosseract.NewClient()
	t := &Tesseract{client: c, enc: png.Encoder{CompressionLevel: png.BestSpeed}}
	if err := t.configure(opts); err != nil {
		_ = c.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "configure tesseract")
	}
	blank := frame.New(32, 16)
	blank.Fill(frame.Rect{X0: 0, X1: 32, Y0: 0, Y1: 16}, [4]byte{0xFF, 0xFF, 0xFF, 0xFF})
	if _, err := t.Recognize(blank); err != nil {
		_ = c.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeOCRInitFailed, "tesseract warm-up").
			WithMetadata("language", opts.Language)
	}
	return t, nil
}

func (t *Tesseract) configure(opts Options) error {
	if err := t.client.SetLanguage(opts.Language); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	if err := t.client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return fmt.Errorf("set page seg mode: %w", err)
	}
	if err := t.client.SetWhitelist(Whitelist); err != nil {
		return fmt.Errorf("set whitelist: %w", err)
	}
	vars := map[gosseract.SettableVariable]string{
		"user_defined_dpi":                     strconv.Itoa(opts.DPI),
		"language_model_penalty_non_dict_word": "0",
	}
	for k, v := range vars {
		if err := t.client.SetVariable(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}
	return nil
}

// Recognize encodes f as PNG and returns the raw engine text.
func (t *Tesseract) Recognize(f *frame.PixelFrame) (string, error) {
	t.buf.Reset()
	if err := t.enc.Encode(&t.buf, f.Image()); err != nil {
		return "", fmt.Errorf("encode box: %w", err)
	}
	if err := t.client.SetImageFromBytes(t.buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

// Close releases the engine.
func (t *Tesseract) Close() error {
	return t.client.Close()
}

// Version reports the linked libtesseract version.
func Version() string {
	return gosseract.Version()
}
