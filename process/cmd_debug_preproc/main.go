package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	log "github.com/sirupsen/logrus"

	"dacalc/pkg/capture"
	"dacalc/pkg/config"
	"dacalc/pkg/imgproc"
	"dacalc/pkg/ocr"
)

// Dumps every preprocessing stage of every badge region so the sweep can be
// inspected by eye, plus the threshold variants of the first contrast level.
func main() {
	in := flag.String("file", "", "lobby screenshot")
	out := flag.String("out", "preproc", "output directory")
	levels := flag.String("levels", "10,50,80", "contrast levels to dump")
	gray := flag.String("gray", "luminosity", "grayscale mode: luminosity or average")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	img, err := capture.Load(*in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	crops, layout, err := imgproc.ExtractRegions(img)
	if err != nil {
		log.Fatalf("regions: %v", err)
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	opts := ocr.DefaultOptions()
	if *gray == "average" {
		opts.Gray = imgproc.GrayAverage
	}
	lv := config.ParseLevels(*levels)
	fmt.Printf("layout %dx%d badge=%dx%d spacing=%d\n", layout.Width, layout.Height, layout.BadgeWidth, layout.BadgeHeight, layout.Spacing)

	save := func(name string, im image.Image) {
		p := filepath.Join(*out, name+".png")
		if err := imaging.Save(im, p); err != nil {
			log.Fatalf("save %s: %v", p, err)
		}
	}
	for i, crop := range crops {
		save(fmt.Sprintf("r%d-0-crop", i), crop)
		for _, l := range lv {
			for j, st := range ocr.Stages(crop, l, opts) {
				save(fmt.Sprintf("r%d-c%03.0f-%d-%s", i, l, j+1, st.Name), st.Image)
			}
		}
		if len(lv) == 0 {
			continue
		}
		g := imgproc.Grayscale(imgproc.Contrast(crop, lv[0]), opts.Gray)
		save(fmt.Sprintf("r%d-bw-fixed128", i), imgproc.Binarize(g, 128))
		save(fmt.Sprintf("r%d-bw-adaptive", i), imgproc.BinarizeAdaptive(g))
		save(fmt.Sprintf("r%d-bw-hard", i), imgproc.HardBlackWhite(g))
		save(fmt.Sprintf("r%d-blacken100", i), imgproc.BlackenBelowThreshold(g, 100))
		save(fmt.Sprintf("r%d-resized", i), imgproc.Resize(g, 300, 120, false))
	}
	fmt.Printf("wrote %d regions to %s\n", len(crops), *out)
}
