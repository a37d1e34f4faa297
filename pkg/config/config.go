// Package config loads runtime settings from .env files and the environment.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"dacalc/pkg/imgproc"
	"dacalc/pkg/ocr"
)

// Config holds settings shared by the server and the CLIs. Flags in the CLIs
// override individual fields after FromEnv.
type Config struct {
	ListenAddr    string
	DBDSN         string
	DBAutoMigrate bool
	JWTSecret     string
	// Optional API client created on migrate when both are set.
	SeedClientID     string
	SeedClientSecret string

	TessdataPrefix string
	OCRLang        string
	OCRWhitelist   string
	OCRWorkers     int
	ContrastLevels []float64
	UpscaleFactor  int

	// Diagnostic crops: local directory and/or S3 bucket.
	CropDir    string
	CropBucket string
	AWSRegion  string

	UploadBase     string
	MaxUploadBytes int64
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     ":8081",
		DBAutoMigrate:  true,
		OCRLang:        "eng",
		OCRWhitelist:   ocr.DefaultWhitelist,
		OCRWorkers:     1,
		ContrastLevels: ocr.DefaultLevels(),
		UpscaleFactor:  2,
		AWSRegion:      "eu-west-2",
		UploadBase:     "uploads",
		MaxUploadBytes: 16 << 20,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8081"
	}
	if c.OCRLang == "" {
		c.OCRLang = "eng"
	}
	if c.OCRWorkers <= 0 {
		c.OCRWorkers = 1
	}
	if c.OCRWorkers > imgproc.RegionCount {
		c.OCRWorkers = imgproc.RegionCount
	}
	levels := c.ContrastLevels[:0:0]
	for _, l := range c.ContrastLevels {
		if l >= -100 && l <= 100 {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		levels = ocr.DefaultLevels()
	}
	c.ContrastLevels = levels
	if c.UpscaleFactor <= 0 || c.UpscaleFactor > 8 {
		c.UpscaleFactor = 2
	}
	if c.UploadBase == "" {
		c.UploadBase = "uploads"
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 16 << 20
	}
	return nil
}

// FromEnv returns defaults overridden by environment variables, validated.
func FromEnv() *Config {
	c := DefaultConfig()
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LISTEN_ADDR", &c.ListenAddr)
	str("DB_DSN", &c.DBDSN)
	str("JWT_SECRET", &c.JWTSecret)
	str("SEED_CLIENT_ID", &c.SeedClientID)
	str("SEED_CLIENT_SECRET", &c.SeedClientSecret)
	str("TESSDATA_PREFIX", &c.TessdataPrefix)
	str("OCR_LANG", &c.OCRLang)
	str("OCR_WHITELIST", &c.OCRWhitelist)
	str("CROP_DIR", &c.CropDir)
	str("CROP_BUCKET", &c.CropBucket)
	str("AWS_REGION", &c.AWSRegion)
	str("UPLOAD_BASE", &c.UploadBase)

	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			c.DBAutoMigrate = false
		}
	}
	if v := os.Getenv("OCR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.OCRWorkers = n
		} else {
			log.Warnf("ignoring OCR_WORKERS=%q: %v", v, err)
		}
	}
	if v := os.Getenv("UPSCALE_FACTOR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.UpscaleFactor = n
		} else {
			log.Warnf("ignoring UPSCALE_FACTOR=%q: %v", v, err)
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxUploadBytes = n
		} else {
			log.Warnf("ignoring MAX_UPLOAD_BYTES=%q: %v", v, err)
		}
	}
	if v := os.Getenv("CONTRAST_LEVELS"); v != "" {
		c.ContrastLevels = ParseLevels(v)
	}
	_ = c.Validate()
	return c
}

// ParseLevels parses a comma separated list such as "10,20,30". Bad entries are skipped.
func ParseLevels(s string) []float64 {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			log.Warnf("ignoring contrast level %q", part)
			continue
		}
		out = append(out, f)
	}
	return out
}

// TesseractOptions returns the engine settings.
func (c *Config) TesseractOptions() ocr.TesseractOptions {
	return ocr.TesseractOptions{
		Language:       c.OCRLang,
		Whitelist:      c.OCRWhitelist,
		TessdataPrefix: c.TessdataPrefix,
	}
}

// PipelineOptions returns the sweep settings; the crop sink is left to the caller.
func (c *Config) PipelineOptions() ocr.Options {
	o := ocr.DefaultOptions()
	o.Levels = append([]float64(nil), c.ContrastLevels...)
	o.Upscale = c.UpscaleFactor
	o.Workers = c.OCRWorkers
	return o
}

// LoadDotEnv loads key=value pairs from path into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return // no .env file
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
