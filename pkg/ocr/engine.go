package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// Engine turns an image into text. Implementations are not required to be safe
// for concurrent use; a Recognizer gives each worker its own Engine.
type Engine interface {
	Text(img image.Image) (string, error)
	Close() error
}

// EngineFactory creates one Engine per recognition worker.
type EngineFactory func() (Engine, error)

// DefaultWhitelist covers rank labels: letters, digits and the dash variants between piece and tier.
const DefaultWhitelist = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-–— "

// TesseractOptions configures a Tesseract engine.
type TesseractOptions struct {
	Language       string
	Whitelist      string
	TessdataPrefix string
	PageSegMode    gosseract.PageSegMode
}

// Tesseract is an Engine backed by a single gosseract client.
type Tesseract struct {
	client *gosseract.Client
}

// NewTesseract creates a client configured for single-line badge labels.
func NewTesseract(o TesseractOptions) (*Tesseract, error) {
	if o.Language == "" {
		o.Language = "eng"
	}
	if o.Whitelist == "" {
		o.Whitelist = DefaultWhitelist
	}
	if o.PageSegMode == 0 {
		o.PageSegMode = gosseract.PSM_SINGLE_LINE
	}
	client := gosseract.NewClient()
	if o.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(o.TessdataPrefix); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(o.Language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set language %q: %w", o.Language, err)
	}
	if err := client.SetWhitelist(o.Whitelist); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(o.PageSegMode); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// TesseractFactory returns an EngineFactory producing Tesseract engines with o.
func TesseractFactory(o TesseractOptions) EngineFactory {
	return func() (Engine, error) { return NewTesseract(o) }
}

// Text encodes img as PNG and runs recognition on it.
func (t *Tesseract) Text(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return text, nil
}

// Close releases the underlying tesseract handle.
func (t *Tesseract) Close() error {
	return t.client.Close()
}
