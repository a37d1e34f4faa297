// Package imgproc holds the pixel transforms, badge region layout and resizing used to
// turn a raw screen capture into OCR-ready crops.
//
// Every transform returns a new *image.NRGBA anchored at (0,0); inputs are never modified.
package imgproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// GrayMode selects how a pixel is reduced to a single intensity.
type GrayMode int

const (
	// GrayAverage uses (R+G+B)/3.
	GrayAverage GrayMode = iota
	// GrayLuminosity uses the Rec. 709 weights 0.2126, 0.7152, 0.0722.
	GrayLuminosity
)

func (m GrayMode) String() string {
	if m == GrayLuminosity {
		return "luminosity"
	}
	return "average"
}

// Luminosity weights in fixed point (sum is lumScale) so that R=G=B=v yields exactly v.
const (
	lumR     = 2126
	lumG     = 7152
	lumB     = 722
	lumScale = 10000
)

func weightedLum(r, g, b uint8) int {
	return lumR*int(r) + lumG*int(g) + lumB*int(b)
}

// Luminosity returns the truncated luminosity of an RGB triple.
func Luminosity(r, g, b uint8) uint8 {
	return uint8(weightedLum(r, g, b) / lumScale)
}

// Average returns the truncated channel mean of an RGB triple.
func Average(r, g, b uint8) uint8 {
	return uint8((int(r) + int(g) + int(b)) / 3)
}

func (m GrayMode) intensity(r, g, b uint8) uint8 {
	if m == GrayLuminosity {
		return Luminosity(r, g, b)
	}
	return Average(r, g, b)
}

// Grayscale broadcasts the mode's intensity to R, G and B. Alpha is kept.
func Grayscale(img image.Image, mode GrayMode) *image.NRGBA {
	out := imaging.Clone(img)
	mapPixels(out, func(px []uint8) {
		v := mode.intensity(px[0], px[1], px[2])
		px[0], px[1], px[2] = v, v, v
	})
	return out
}

// Contrast applies a linear contrast stretch. percent is clamped to [-100, 100];
// positive values increase contrast.
func Contrast(img image.Image, percent float64) *image.NRGBA {
	return imaging.AdjustContrast(img, percent)
}

// Invert negates every color channel.
func Invert(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

func setBW(px []uint8, white bool) {
	var v uint8
	if white {
		v = 255
	}
	px[0], px[1], px[2], px[3] = v, v, v, 255
}

// Binarize turns pixels whose channel average is at least threshold white and all others black.
func Binarize(img image.Image, threshold int) *image.NRGBA {
	out := imaging.Clone(img)
	mapPixels(out, func(px []uint8) {
		setBW(px, int(Average(px[0], px[1], px[2])) >= threshold)
	})
	return out
}

// BinarizeAdaptive thresholds on the image's mean luminosity: pixels darker than the
// mean become black, the rest white. The reduction finishes before any pixel is written.
func BinarizeAdaptive(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Rect.Dx(), out.Rect.Dy()
	if w == 0 || h == 0 {
		return out
	}
	bands := splitRows(h)
	partial := make([]int64, len(bands))
	runBands(bands, func(i int, b band) {
		var s int64
		for y := b.y0; y < b.y1; y++ {
			row := out.Pix[y*out.Stride : y*out.Stride+w*4]
			for x := 0; x < len(row); x += 4 {
				s += int64(weightedLum(row[x], row[x+1], row[x+2]))
			}
		}
		partial[i] = s
	})
	var total int64
	for _, s := range partial {
		total += s
	}
	n := int64(w) * int64(h)
	// lum < total/n, compared without division
	mapPixels(out, func(px []uint8) {
		setBW(px, int64(weightedLum(px[0], px[1], px[2]))*n >= total)
	})
	return out
}

// HardBlackWhite keeps only pure white (255,255,255) pixels white; everything else turns black.
func HardBlackWhite(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	mapPixels(out, func(px []uint8) {
		setBW(px, px[0] == 255 && px[1] == 255 && px[2] == 255)
	})
	return out
}

// BlackenBelowThreshold paints pixels with a red channel below threshold opaque black and
// leaves the rest untouched, separating bright glyphs from a dark badge background.
func BlackenBelowThreshold(img image.Image, threshold int) *image.NRGBA {
	out := imaging.Clone(img)
	mapPixels(out, func(px []uint8) {
		if int(px[0]) < threshold {
			setBW(px, false)
		}
	})
	return out
}
