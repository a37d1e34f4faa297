package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"dacalc/pkg/capture"
	"dacalc/pkg/config"
	"dacalc/pkg/cropstore"
	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// Recognizes the lobby badges of one screenshot (or the live screen) and prints
// the ranks plus, with -current, the MMR change per placement.
func main() {
	config.LoadDotEnv(".env")
	cfg := config.FromEnv()

	f := flag.String("file", "", "screenshot to recognize (omit with -screen)")
	screen := flag.Bool("screen", false, "capture the primary display instead of reading -file")
	cur := flag.String("current", "", "your current rank, e.g. knight3")
	levels := flag.String("levels", "", "contrast levels, e.g. 80 or 10,20,30 (default CONTRAST_LEVELS)")
	asJSON := flag.Bool("json", false, "print results as JSON")
	flag.StringVar(&cfg.CropDir, "crop-dir", cfg.CropDir, "store diagnostic crops here")
	verbose := flag.Bool("verbose", false, "log every OCR attempt")
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *levels != "" {
		cfg.ContrastLevels = config.ParseLevels(*levels)
		if err := cfg.Validate(); err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	var img image.Image
	name := "screen"
	switch {
	case *screen:
		shot, err := capture.Screen()
		if err != nil {
			log.Fatalf("capture: %v", err)
		}
		img = shot
		name = fmt.Sprintf("screen-%s", time.Now().Format("20060102-150405"))
	case *f != "":
		var err error
		if img, err = capture.Load(*f); err != nil {
			log.Fatalf("load: %v", err)
		}
		name = strings.TrimSuffix(filepath.Base(*f), filepath.Ext(*f))
	default:
		log.Fatalf("-file or -screen required")
	}

	opts := cfg.PipelineOptions()
	sink, err := cropstore.Open(cfg.CropDir, cfg.CropBucket, cfg.AWSRegion, "crops")
	if err != nil {
		log.Fatalf("crop sink: %v", err)
	}
	if sink != nil {
		opts.Sink = sink
	}
	rec, err := ocr.NewRecognizer(ocr.TesseractFactory(cfg.TesseractOptions()), opts)
	if err != nil {
		log.Fatalf("ocr: %v", err)
	}
	defer rec.Close()

	results, err := rec.RecognizeAs(context.Background(), name, img)
	if err != nil {
		log.Fatalf("recognize: %v", err)
	}

	var est *rank.Estimate
	if *cur != "" {
		c, err := rank.ParseName(*cur)
		if err != nil {
			log.Fatalf("-current: %v", err)
		}
		lobby := make([]rank.Rank, rank.LobbySize)
		for i := range lobby {
			lobby[i] = rank.Unranked
		}
		ranks, ok := ocr.Ranks(results)
		e, err := rank.ComputeChanges(rank.AssignSelections(lobby, ranks, ok), c)
		if err != nil {
			log.Warnf("no estimate: %v", err)
		} else {
			est = &e
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"regions": results, "estimate": est})
		return
	}
	for _, r := range results {
		if r.Resolved {
			fmt.Printf("%d: %-9s contrast=%.0f attempts=%d text=%q\n", r.Index+1, r.Rank, r.Contrast, r.Attempts, r.Text)
		} else {
			fmt.Printf("%d: %-9s attempts=%d text=%q\n", r.Index+1, "?", r.Attempts, r.Text)
		}
	}
	ranks, ok := ocr.Ranks(results)
	if avg, has := rank.SelectionAverage(ranks, ok); has {
		fmt.Printf("lobby average %.0f (%s)\n", avg, rank.ClosestRank(avg))
	}
	if est != nil {
		for _, ch := range est.Changes {
			fmt.Printf("%s: %+.0f\n", ch.Placement, ch.Delta)
		}
	}
}
