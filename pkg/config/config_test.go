package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LISTEN_ADDR", "DB_DSN", "OCR_WORKERS", "CONTRAST_LEVELS", "UPSCALE_FACTOR", "DB_AUTO_MIGRATE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.ListenAddr != ":8081" || c.OCRWorkers != 1 || c.UpscaleFactor != 2 || !c.DBAutoMigrate {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if len(c.ContrastLevels) != 10 || c.ContrastLevels[0] != 10 || c.ContrastLevels[9] != 100 {
		t.Fatalf("unexpected levels %v", c.ContrastLevels)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("OCR_WORKERS", "32")
	t.Setenv("CONTRAST_LEVELS", "80, bad, 150,40")
	t.Setenv("DB_AUTO_MIGRATE", "no")
	t.Setenv("UPSCALE_FACTOR", "3")
	c := FromEnv()
	if c.ListenAddr != ":9000" {
		t.Fatalf("listen addr %q", c.ListenAddr)
	}
	if c.OCRWorkers != 8 {
		t.Fatalf("workers should clamp to 8, got %d", c.OCRWorkers)
	}
	if !reflect.DeepEqual(c.ContrastLevels, []float64{80, 40}) {
		t.Fatalf("unexpected levels %v", c.ContrastLevels)
	}
	if c.DBAutoMigrate {
		t.Fatalf("DB_AUTO_MIGRATE=no should disable migration")
	}
	o := c.PipelineOptions()
	if o.Upscale != 3 || o.Workers != 8 || len(o.Levels) != 2 {
		t.Fatalf("unexpected pipeline options %+v", o)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	body := "# comment\nDACALC_TEST_A=from-file\nexport DACALC_TEST_B=\"quoted\"\n\nDACALC_TEST_C=file\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("DACALC_TEST_C", "env")
	os.Unsetenv("DACALC_TEST_A")
	os.Unsetenv("DACALC_TEST_B")
	t.Cleanup(func() {
		os.Unsetenv("DACALC_TEST_A")
		os.Unsetenv("DACALC_TEST_B")
	})
	LoadDotEnv(path)
	if os.Getenv("DACALC_TEST_A") != "from-file" || os.Getenv("DACALC_TEST_B") != "quoted" {
		t.Fatalf("values not loaded: %q %q", os.Getenv("DACALC_TEST_A"), os.Getenv("DACALC_TEST_B"))
	}
	if os.Getenv("DACALC_TEST_C") != "env" {
		t.Fatalf("existing variable overwritten")
	}
}

func TestParseLevels(t *testing.T) {
	got := ParseLevels(" 10,,20.5 ,x")
	if !reflect.DeepEqual(got, []float64{10, 20.5}) {
		t.Fatalf("unexpected %v", got)
	}
}
