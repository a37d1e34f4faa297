package imgproc

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// RegionCount is the number of player badges in the lobby list.
const RegionCount = 8

// The badge column is calibrated for a 1920x1080 capture; other resolutions only
// rescale badge size and spacing, not the column origin.
const (
	badgeOriginX = 1850
	badgeOriginY = 160

	badgeWidthRatio  = 0.035
	badgeHeightRatio = 0.03
	badgeSpacing     = 0.0972

	// sizes snap to multiples of this many pixels
	snap = 5
)

// ErrRegionOutOfBounds means a badge region does not fit inside the capture.
var ErrRegionOutOfBounds = errors.New("region out of capture bounds")

// Layout describes where the rank badges sit in a capture of a given size.
type Layout struct {
	Width, Height int // capture size the layout was computed for
	BadgeWidth    int
	BadgeHeight   int
	Spacing       int
	Origin        image.Point
	Count         int
}

// NewLayout computes badge geometry for a w x h capture.
func NewLayout(w, h int) Layout {
	return Layout{
		Width:       w,
		Height:      h,
		BadgeWidth:  int(math.RoundToEven(float64(w)*badgeWidthRatio/snap)) * snap,
		BadgeHeight: int(math.Ceil(float64(h)*badgeHeightRatio/snap)) * snap,
		Spacing:     int(math.RoundToEven(float64(h)*badgeSpacing/snap)) * snap,
		Origin:      image.Pt(badgeOriginX, badgeOriginY),
		Count:       RegionCount,
	}
}

// Regions returns the badge rectangles top to bottom, relative to the capture origin.
func (l Layout) Regions() []image.Rectangle {
	out := make([]image.Rectangle, l.Count)
	for i := range out {
		top := l.Origin.Add(image.Pt(0, l.Spacing*i))
		out[i] = image.Rectangle{Min: top, Max: top.Add(image.Pt(l.BadgeWidth, l.BadgeHeight))}
	}
	return out
}

// Validate checks every region against a capture of the layout's size.
func (l Layout) Validate() error {
	frame := image.Rect(0, 0, l.Width, l.Height)
	for i, r := range l.Regions() {
		if r.Empty() || !r.In(frame) {
			return fmt.Errorf("%w: region %d %v not within %dx%d", ErrRegionOutOfBounds, i, r, l.Width, l.Height)
		}
	}
	return nil
}

// Crop copies r (relative to the image origin) into a new image. r must lie inside img.
func Crop(img image.Image, r image.Rectangle) (*image.NRGBA, error) {
	b := img.Bounds()
	abs := r.Add(b.Min)
	if r.Empty() || !abs.In(b) {
		return nil, fmt.Errorf("%w: %v not within %v", ErrRegionOutOfBounds, r, b.Sub(b.Min))
	}
	return imaging.Crop(img, abs), nil
}

// ExtractRegions crops all badge regions out of capture. Bounds are validated for
// every region before any pixel is copied.
func ExtractRegions(capture image.Image) ([]*image.NRGBA, Layout, error) {
	b := capture.Bounds()
	l := NewLayout(b.Dx(), b.Dy())
	if err := l.Validate(); err != nil {
		return nil, l, err
	}
	out := make([]*image.NRGBA, 0, l.Count)
	for _, r := range l.Regions() {
		crop, err := Crop(capture, r)
		if err != nil {
			return nil, l, err
		}
		out = append(out, crop)
	}
	return out, l, nil
}
