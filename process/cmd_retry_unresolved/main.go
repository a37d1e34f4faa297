package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"path/filepath"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"dacalc/pkg/capture"
	"dacalc/pkg/config"
	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// Re-runs recognition for stored captures that still have unresolved regions,
// using a finer contrast sweep, and fills in the slots that now resolve.
func main() {
	config.LoadDotEnv(".env")
	cfg := config.FromEnv()
	levels := flag.String("levels", "5,15,25,35,45,55,65,75,85,95", "contrast levels for the retry sweep")
	limit := flag.Int("limit", 100, "max recognitions to retry")
	dry := flag.Bool("dry-run", false, "print what would change without writing")
	flag.Parse()

	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN not set")
	}
	db, err := sql.Open("postgres", cfg.DBDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	cfg.ContrastLevels = config.ParseLevels(*levels)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	rec, err := ocr.NewRecognizer(ocr.TesseractFactory(cfg.TesseractOptions()), cfg.PipelineOptions())
	if err != nil {
		log.Fatalf("ocr: %v", err)
	}
	defer rec.Close()

	rows, err := db.Query(`SELECT id, file_name, source, store_path FROM recognitions WHERE failed = false AND resolved < $1 ORDER BY id DESC LIMIT $2`, rank.LobbySize, *limit)
	if err != nil {
		log.Fatalf("query: %v", err)
	}
	type candidate struct {
		id     int64
		name   string
		source string
		path   sql.NullString
	}
	var todo []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.name, &c.source, &c.path); err != nil {
			log.Warnf("scan: %v", err)
			continue
		}
		todo = append(todo, c)
	}
	rows.Close()

	for _, c := range todo {
		path := capturePath(cfg.UploadBase, c.source, c.name, c.path.String)
		img, err := capture.Load(path)
		if err != nil {
			log.Warnf("open %s: %v", path, err)
			continue
		}
		results, err := rec.Recognize(context.Background(), img)
		if err != nil {
			log.Warnf("recognize id=%d: %v", c.id, err)
			continue
		}
		fixed := 0
		for _, r := range results {
			if !r.Resolved {
				continue
			}
			if *dry {
				fmt.Printf("id=%d slot=%d would set %s (contrast=%.0f)\n", c.id, r.Index, r.Rank, r.Contrast)
				continue
			}
			res, err := db.Exec(`UPDATE recognition_regions SET rank=$1, resolved=true, text=$2, contrast=$3, attempts=$4
				WHERE recognition_id=$5 AND slot=$6 AND resolved=false`, r.Rank.String(), r.Text, r.Contrast, r.Attempts, c.id, r.Index)
			if err != nil {
				log.Warnf("update id=%d slot=%d: %v", c.id, r.Index, err)
				continue
			}
			if n, _ := res.RowsAffected(); n > 0 {
				fixed++
			}
		}
		if fixed > 0 {
			if err := refreshSummary(db, c.id); err != nil {
				log.Warnf("recount id=%d: %v", c.id, err)
			}
			fmt.Printf("updated id=%d file=%s slots=%d\n", c.id, c.name, fixed)
		}
	}
}

// capturePath locates the stored capture of a recognition. Uploads keep a path
// relative to the upload base; watched files keep the path they were read from.
func capturePath(uploadBase, source, fileName, storePath string) string {
	if storePath == "" {
		return fileName
	}
	if source != "upload" || filepath.IsAbs(storePath) {
		return storePath
	}
	if uploadBase == "" {
		uploadBase = "uploads"
	}
	return filepath.Join(uploadBase, storePath)
}

// refreshSummary recomputes the resolved count, lobby average and closest rank of id
// from its stored regions.
func refreshSummary(db *sql.DB, id int64) error {
	rows, err := db.Query(`SELECT slot, rank FROM recognition_regions WHERE recognition_id=$1 AND resolved`, id)
	if err != nil {
		return err
	}
	defer rows.Close()
	ranks := make([]rank.Rank, rank.LobbySize)
	set := make([]bool, rank.LobbySize)
	resolved := 0
	for rows.Next() {
		var slot int
		var name string
		if err := rows.Scan(&slot, &name); err != nil {
			return err
		}
		r, err := rank.ParseName(name)
		if err != nil || slot < 0 || slot >= rank.LobbySize {
			continue
		}
		ranks[slot], set[slot] = r, true
		resolved++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	var avg sql.NullFloat64
	var closest string
	if a, ok := rank.SelectionAverage(ranks, set); ok {
		avg = sql.NullFloat64{Float64: a, Valid: true}
		closest = rank.ClosestRank(a).String()
	}
	_, err = db.Exec(`UPDATE recognitions SET resolved=$1, average=$2, closest=$3, updated_at=now() WHERE id=$4`, resolved, avg, closest, id)
	return err
}
