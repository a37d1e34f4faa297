package main

import (
	"fmt"
	"os"

	"dacalc/pkg/capture"
	"dacalc/pkg/config"
	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// OCRs a single, already cropped badge image at contrast 80, both raw and preprocessed.
func main() {
	p := "testdata/badge.png"
	if len(os.Args) > 1 {
		p = os.Args[1]
	}
	config.LoadDotEnv(".env")
	cfg := config.FromEnv()
	img, err := capture.Load(p)
	if err != nil {
		fmt.Printf("load err=%v\n", err)
		os.Exit(1)
	}
	engine, err := ocr.NewTesseract(cfg.TesseractOptions())
	if err != nil {
		fmt.Printf("tesseract err=%v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	raw, err := engine.Text(img)
	fmt.Printf("raw err=%v text=%q\n", err, raw)
	prepared, err := engine.Text(ocr.Prepare(img, 80, ocr.DefaultOptions()))
	fmt.Printf("prepared err=%v text=%q\n", err, prepared)
	r, ok := rank.ParseText(prepared)
	fmt.Printf("rank=%v ok=%v\n", r, ok)
}
