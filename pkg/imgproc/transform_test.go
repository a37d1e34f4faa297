package imgproc

import (
	"bytes"
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// noise builds a deterministic random opaque-ish image.
func noise(w, h int, seed int64) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	r.Read(img.Pix)
	return img
}

// reference applies fn pixel by pixel with At/Set, the slow obvious way.
func reference(src *image.NRGBA, fn func(c color.NRGBA) color.NRGBA) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.SetNRGBA(x, y, fn(src.NRGBAAt(x, y)))
		}
	}
	return out
}

func samePixels(t *testing.T, name string, got, want *image.NRGBA) {
	t.Helper()
	if got.Rect.Dx() != want.Rect.Dx() || got.Rect.Dy() != want.Rect.Dy() {
		t.Fatalf("%s: size %v vs %v", name, got.Rect, want.Rect)
	}
	for y := 0; y < want.Rect.Dy(); y++ {
		for x := 0; x < want.Rect.Dx(); x++ {
			g := got.NRGBAAt(got.Rect.Min.X+x, got.Rect.Min.Y+y)
			w := want.NRGBAAt(want.Rect.Min.X+x, want.Rect.Min.Y+y)
			if g != w {
				t.Fatalf("%s: pixel (%d,%d) got %v want %v", name, x, y, g, w)
			}
		}
	}
}

func bw(white bool) color.NRGBA {
	if white {
		return color.NRGBA{255, 255, 255, 255}
	}
	return color.NRGBA{0, 0, 0, 255}
}

func TestGrayscaleMatchesReference(t *testing.T) {
	src := noise(97, 61, 1)
	avg := reference(src, func(c color.NRGBA) color.NRGBA {
		v := uint8((int(c.R) + int(c.G) + int(c.B)) / 3)
		return color.NRGBA{v, v, v, c.A}
	})
	samePixels(t, "average", Grayscale(src, GrayAverage), avg)

	lum := reference(src, func(c color.NRGBA) color.NRGBA {
		v := uint8((2126*int(c.R) + 7152*int(c.G) + 722*int(c.B)) / 10000)
		return color.NRGBA{v, v, v, c.A}
	})
	samePixels(t, "luminosity", Grayscale(src, GrayLuminosity), lum)
}

func TestGrayscaleLuminosityIdempotent(t *testing.T) {
	once := Grayscale(noise(64, 64, 2), GrayLuminosity)
	twice := Grayscale(once, GrayLuminosity)
	samePixels(t, "idempotent", twice, once)
}

func TestTransformsDoNotMutateInput(t *testing.T) {
	src := noise(32, 16, 3)
	orig := append([]uint8(nil), src.Pix...)
	Grayscale(src, GrayLuminosity)
	Binarize(src, 128)
	BinarizeAdaptive(src)
	HardBlackWhite(src)
	BlackenBelowThreshold(src, 100)
	Contrast(src, 50)
	Invert(src)
	if !bytes.Equal(src.Pix, orig) {
		t.Fatalf("input image was modified")
	}
}

func TestBinarizeMatchesReference(t *testing.T) {
	src := noise(50, 40, 4)
	want := reference(src, func(c color.NRGBA) color.NRGBA {
		return bw((int(c.R)+int(c.G)+int(c.B))/3 >= 128)
	})
	samePixels(t, "binarize", Binarize(src, 128), want)
}

func TestBinarizeAdaptiveMatchesReference(t *testing.T) {
	src := noise(53, 47, 5)
	sum := 0.0
	for y := 0; y < 47; y++ {
		for x := 0; x < 53; x++ {
			c := src.NRGBAAt(x, y)
			sum += float64(2126*int(c.R)+7152*int(c.G)+722*int(c.B)) / 10000
		}
	}
	mean := sum / float64(53*47)
	want := reference(src, func(c color.NRGBA) color.NRGBA {
		l := float64(2126*int(c.R)+7152*int(c.G)+722*int(c.B)) / 10000
		return bw(!(l < mean))
	})
	samePixels(t, "adaptive", BinarizeAdaptive(src), want)
}

func TestBinarizeAdaptiveSplitsHalves(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.SetNRGBA(x, 0, color.NRGBA{20, 20, 20, 255})
		img.SetNRGBA(x, 1, color.NRGBA{220, 220, 220, 255})
	}
	out := BinarizeAdaptive(img)
	if out.NRGBAAt(0, 0) != bw(false) || out.NRGBAAt(0, 1) != bw(true) {
		t.Fatalf("unexpected adaptive result %v %v", out.NRGBAAt(0, 0), out.NRGBAAt(0, 1))
	}
}

func TestHardBlackWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 254, 255, 255})
	img.SetNRGBA(2, 0, color.NRGBA{255, 0, 0, 255})
	out := HardBlackWhite(img)
	if out.NRGBAAt(0, 0) != bw(true) || out.NRGBAAt(1, 0) != bw(false) || out.NRGBAAt(2, 0) != bw(false) {
		t.Fatalf("unexpected hard black/white %v", out.Pix)
	}
}

func TestBlackenBelowThreshold(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{99, 250, 250, 128})
	img.SetNRGBA(1, 0, color.NRGBA{100, 10, 20, 128})
	out := BlackenBelowThreshold(img, 100)
	if out.NRGBAAt(0, 0) != bw(false) {
		t.Fatalf("low red pixel should be black, got %v", out.NRGBAAt(0, 0))
	}
	if out.NRGBAAt(1, 0) != (color.NRGBA{100, 10, 20, 128}) {
		t.Fatalf("pixel at threshold should be unchanged, got %v", out.NRGBAAt(1, 0))
	}
}

func TestContrastRepeatable(t *testing.T) {
	src := noise(20, 20, 6)
	a := Contrast(src, 40)
	b := Contrast(src, 40)
	samePixels(t, "contrast", a, b)
	c := Contrast(Contrast(src, 40), 40)
	if c.Rect.Dx() != 20 {
		t.Fatalf("repeated contrast changed size")
	}
}

func TestInvert(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{10, 20, 30, 255})
	if got := Invert(img).NRGBAAt(0, 0); got != (color.NRGBA{245, 235, 225, 255}) {
		t.Fatalf("unexpected invert %v", got)
	}
}

func TestSplitRowsCoversAllRows(t *testing.T) {
	for _, h := range []int{1, 2, 7, 1080} {
		next := 0
		for _, b := range splitRows(h) {
			if b.y0 != next || b.y1 <= b.y0 {
				t.Fatalf("h=%d bad band %v", h, b)
			}
			next = b.y1
		}
		if next != h {
			t.Fatalf("h=%d bands end at %d", h, next)
		}
	}
	if splitRows(0) != nil {
		t.Fatalf("expected no bands for empty image")
	}
}
