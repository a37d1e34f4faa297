// Package capture provides the screenshots the badge recognizer works on.
package capture

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/vova616/screenshot"
	_ "golang.org/x/image/webp"
)

// ErrUnsupported is returned by Load for file types that are not images.
var ErrUnsupported = errors.New("unsupported capture format")

// Screen captures the primary display.
func Screen() (*image.RGBA, error) {
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

// Supported reports whether name looks like a capture Load can decode.
// Files written by the crop sink carry ".crop." and are skipped.
func Supported(name string) bool {
	if strings.Contains(name, ".crop.") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

// Load decodes a screenshot from disk.
func Load(path string) (image.Image, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
