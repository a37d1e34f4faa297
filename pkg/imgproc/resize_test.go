package imgproc

import (
	"image"
	"testing"
)

func TestResizeKeepsAspect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 65, 35))
	out := Upscale(img, 2)
	if out.Rect.Dx() != 130 || out.Rect.Dy() != 70 {
		t.Fatalf("expected 130x70 got %v", out.Rect)
	}
}

func TestResizeFitsMaxHeight(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	// width 400 would need height 200; clamp to 80 and derive width from it
	out := Resize(img, 400, 80, false)
	if out.Rect.Dx() != 160 || out.Rect.Dy() != 80 {
		t.Fatalf("expected 160x80 got %v", out.Rect)
	}
}

func TestResizeOnlyIfWider(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	out := Resize(img, 300, 1000, true)
	if out.Rect.Dx() != 100 || out.Rect.Dy() != 50 {
		t.Fatalf("narrower image should keep size, got %v", out.Rect)
	}
	out = Resize(img, 50, 1000, true)
	if out.Rect.Dx() != 50 || out.Rect.Dy() != 25 {
		t.Fatalf("expected downscale to 50x25 got %v", out.Rect)
	}
}

func TestUpscaleFactorOneClones(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	out := Upscale(img, 1)
	if out == img || out.Rect != img.Rect {
		t.Fatalf("expected an equal-sized copy")
	}
}
