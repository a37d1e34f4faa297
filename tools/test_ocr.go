package main

import (
	"flag"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"dacalc/pkg/capture"
	"dacalc/pkg/config"
	"dacalc/pkg/imgproc"
	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// Runs every contrast level on every region without stopping at the first match,
// printing a table of raw OCR text so sweep settings can be compared.
func main() {
	img := flag.String("img", "testdata/lobby.png", "lobby screenshot to run OCR on")
	flag.Parse()
	config.LoadDotEnv(".env")
	cfg := config.FromEnv()

	p, _ := filepath.Abs(*img)
	fmt.Printf("Running OCR sweep on %s\n", p)
	capt, err := capture.Load(p)
	if err != nil {
		log.Fatalf("load: %v", err)
	}
	crops, _, err := imgproc.ExtractRegions(capt)
	if err != nil {
		log.Fatalf("regions: %v", err)
	}
	engine, err := ocr.NewTesseract(cfg.TesseractOptions())
	if err != nil {
		log.Fatalf("tesseract: %v", err)
	}
	defer engine.Close()

	opts := cfg.PipelineOptions()
	for i, crop := range crops {
		for _, level := range opts.Levels {
			text, err := engine.Text(ocr.Prepare(crop, level, opts))
			if err != nil {
				fmt.Printf("r%d c%3.0f error=%v\n", i, level, err)
				continue
			}
			r, ok := rank.ParseText(text)
			mark := "-"
			if ok {
				mark = r.String()
			}
			fmt.Printf("r%d c%3.0f %-9s cleaned=%q\n", i, level, mark, rank.Clean(text))
		}
	}
}
