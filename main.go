package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"dacalc/pkg/config"
	"dacalc/pkg/cropstore"
	"dacalc/pkg/ocr"
)

var cfg *config.Config

func main() {
	// Auto-load ./.env if present before reading vars
	config.LoadDotEnv(".env")
	cfg = config.FromEnv()
	jwtSecret = []byte(cfg.JWTSecret)
	if len(jwtSecret) == 0 {
		log.Warn("JWT_SECRET is not set; API routes are unauthenticated")
	}

	// Support a lightweight migrate command: `./dacalc migrate`
	// It runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if cfg.DBDSN == "" {
			log.Fatal("DB_DSN is not set. migrate requires a Postgres DSN in DB_DSN.")
		}
		initDB(cfg)
		fmt.Println("migration and seeding completed")
		return
	}

	initDB(cfg)

	rec, err := newRecognizer(cfg)
	if err != nil {
		log.Warnf("ocr disabled: %v", err)
	} else {
		recognizer = rec
		defer rec.Close()
	}

	r := gin.Default()
	setupRoutes(r)

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// newRecognizer builds the Tesseract-backed pipeline with the configured crop sinks.
func newRecognizer(c *config.Config) (*ocr.Recognizer, error) {
	opts := c.PipelineOptions()
	sink, err := cropstore.Open(c.CropDir, c.CropBucket, c.AWSRegion, "crops")
	if err != nil {
		return nil, err
	}
	if sink != nil {
		opts.Sink = sink
	}
	return ocr.NewRecognizer(ocr.TesseractFactory(c.TesseractOptions()), opts)
}
