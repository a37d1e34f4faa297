package imgproc

import (
	"image"

	"github.com/disintegration/imaging"
)

// Resize scales img to newWidth keeping the aspect ratio. When the resulting height would
// exceed maxHeight the image is fitted to maxHeight instead. With onlyIfWider set an image
// that is already narrower than newWidth keeps its width.
// Interpolation is bicubic (Catmull-Rom).
func Resize(img image.Image, newWidth, maxHeight int, onlyIfWider bool) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 || newWidth < 1 || maxHeight < 1 {
		return imaging.Clone(img)
	}
	if onlyIfWider && w <= newWidth {
		newWidth = w
	}
	newHeight := h * newWidth / w
	if newHeight > maxHeight {
		newWidth = w * maxHeight / h
		newHeight = maxHeight
	}
	newWidth = max(newWidth, 1)
	newHeight = max(newHeight, 1)
	if newWidth == w && newHeight == h {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, newWidth, newHeight, imaging.CatmullRom)
}

// Upscale enlarges img by an integer factor; tesseract reads the badge labels far more
// reliably once glyphs are around 30px tall.
func Upscale(img image.Image, factor int) *image.NRGBA {
	if factor <= 1 {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	return Resize(img, b.Dx()*factor, b.Dy()*factor, false)
}
