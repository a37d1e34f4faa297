package capture

import (
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestSupported(t *testing.T) {
	cases := map[string]bool{
		"lobby.png":             true,
		"LOBBY.JPG":             true,
		"shot.webp":             true,
		"shot.bmp":              true,
		"notes.txt":             false,
		"shot-region0.crop.png": false,
		"noext":                 false,
	}
	for name, want := range cases {
		if got := Supported(name); got != want {
			t.Fatalf("Supported(%q)=%v want %v", name, got, want)
		}
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	src.SetNRGBA(3, 4, color.NRGBA{200, 100, 50, 255})
	path := filepath.Join(dir, "lobby.png")
	if err := imaging.Save(src, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	img, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	r, g, b, _ := img.At(3, 4).RGBA()
	if r>>8 != 200 || g>>8 != 100 || b>>8 != 50 {
		t.Fatalf("unexpected pixel %v", img.At(3, 4))
	}
}

func TestLoadRejects(t *testing.T) {
	if _, err := Load("report.csv"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
