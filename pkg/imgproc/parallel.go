package imgproc

import (
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// band is a half-open row range [y0, y1).
type band struct{ y0, y1 int }

// splitRows partitions h rows into at most GOMAXPROCS disjoint bands.
func splitRows(h int) []band {
	if h <= 0 {
		return nil
	}
	n := runtime.GOMAXPROCS(0)
	if n > h {
		n = h
	}
	size := (h + n - 1) / n
	out := make([]band, 0, n)
	for y := 0; y < h; y += size {
		out = append(out, band{y, min(y+size, h)})
	}
	return out
}

// runBands calls fn once per band concurrently and waits for all of them.
// Each call owns its rows exclusively.
func runBands(bs []band, fn func(i int, b band)) {
	if len(bs) == 1 {
		fn(0, bs[0])
		return
	}
	var g errgroup.Group
	for i, b := range bs {
		i, b := i, b // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			fn(i, b)
			return nil
		})
	}
	_ = g.Wait()
}

// mapPixels applies fn to every pixel of img in place, one band of rows per worker.
// px is the 4-byte R,G,B,A slice of the pixel.
func mapPixels(img *image.NRGBA, fn func(px []uint8)) {
	w := img.Rect.Dx()
	runBands(splitRows(img.Rect.Dy()), func(_ int, b band) {
		for y := b.y0; y < b.y1; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for x := 0; x < len(row); x += 4 {
				fn(row[x : x+4 : x+4])
			}
		}
	})
}
