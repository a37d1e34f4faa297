package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dacalc/models"
	"dacalc/pkg/capture"
	"dacalc/pkg/config"
	"dacalc/pkg/cropstore"
	"dacalc/pkg/imgproc"
	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// Global DB handle for helper funcs; nil in dry-run.
var db *gorm.DB

// global flags (parsed in main)
var (
	verbose bool
	current rank.Rank
	hasCur  bool
	moveTo  string
)

// processedState caches file names already stored so rescans skip them.
type processedState struct {
	byFile map[string]uint // fileName -> recognition id
	mu     sync.RWMutex
}

func newProcessedState() *processedState {
	return &processedState{byFile: make(map[string]uint, 1024)}
}

func (ps *processedState) get(name string) (uint, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	id, ok := ps.byFile[name]
	return id, ok
}

func (ps *processedState) put(name string, id uint) {
	ps.mu.Lock()
	ps.byFile[name] = id
	ps.mu.Unlock()
}

func mustInitDB(dsn string) *gorm.DB {
	if dsn == "" {
		log.Fatalf("DB_DSN must be set in environment to run this tool (or use -dry-run)")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return gdb
}

// Main: scans a directory of lobby screenshots, recognizes the badges of each one and
// stores the results; optional watch mode picks up new screenshots as they appear.
func main() {
	config.LoadDotEnv(".env")
	cfg := config.FromEnv()

	dirFlag := flag.String("dir", "captures", "directory to scan for lobby screenshots")
	dryRun := flag.Bool("dry-run", false, "Skip all DB queries and writes; just print results")
	watch := flag.Bool("watch", false, "Watch directory for new files")
	workers := flag.Int("workers", 0, "Worker pool size (default NumCPU)")
	cur := flag.String("current", "", "your current rank; prints the MMR estimate per capture")
	flag.StringVar(&moveTo, "move-processed", "", "move processed screenshots into this directory")
	flag.StringVar(&cfg.CropDir, "crop-dir", cfg.CropDir, "store diagnostic crops here")
	inspect := flag.Bool("inspect-fks", false, "print foreign keys of the history tables and exit")
	flag.BoolVar(&verbose, "verbose", false, "Verbose per-file logging")
	flag.Parse()
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *inspect {
		if err := RunInspectFKs(os.Stdout, cfg.DBDSN); err != nil {
			log.Fatalf("inspect: %v", err)
		}
		return
	}
	if *cur != "" {
		r, err := rank.ParseName(*cur)
		if err != nil {
			log.Fatalf("-current: %v", err)
		}
		current, hasCur = r, true
	}

	ps := newProcessedState()
	if !*dryRun {
		db = mustInitDB(cfg.DBDSN)
		preloadAll(ps)
		log.Infof("Preloaded: recognitions=%d", len(ps.byFile))
	} else {
		log.Infof("Dry-run: scanning %s (no DB interaction)", *dirFlag)
	}

	sink, err := cropstore.Open(cfg.CropDir, cfg.CropBucket, cfg.AWSRegion, "crops")
	if err != nil {
		log.Fatalf("crop sink: %v", err)
	}
	opts := cfg.PipelineOptions()
	opts.Workers = 1 // one engine per file worker
	if sink != nil {
		opts.Sink = sink
	}
	newRec := func() (*ocr.Recognizer, error) {
		return ocr.NewRecognizer(ocr.TesseractFactory(cfg.TesseractOptions()), opts)
	}

	files := listImageFiles(*dirFlag)
	log.Infof("Scanning %d files (workers=%d)", len(files), effectiveWorkers(*workers))
	runWorkerPool(*dirFlag, newRec, ps, files, effectiveWorkers(*workers))

	if *watch {
		if err := watchDirectory(*dirFlag, newRec, ps, effectiveWorkers(*workers)); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

// preloadAll fetches stored recognitions to minimize per-file queries.
func preloadAll(ps *processedState) {
	var recs []models.Recognition
	if err := db.Select("id", "file_name").Where("failed = ?", false).Find(&recs).Error; err == nil {
		for _, r := range recs {
			ps.put(r.FileName, r.ID)
		}
	}
}

func listImageFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !capture.Supported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// debouncer tracks files seen by the watcher until they stop changing.
type debouncer struct {
	quiet   time.Duration
	pending map[string]time.Time
}

func newDebouncer(quiet time.Duration) *debouncer {
	return &debouncer{quiet: quiet, pending: map[string]time.Time{}}
}

func (d *debouncer) touch(name string, at time.Time) {
	d.pending[name] = at
}

// ready returns (and forgets) names untouched for longer than quiet, sorted.
func (d *debouncer) ready(now time.Time) []string {
	var out []string
	for name, t := range d.pending {
		if now.Sub(t) > d.quiet {
			out = append(out, name)
			delete(d.pending, name)
		}
	}
	sort.Strings(out)
	return out
}

func watchDirectory(dir string, newRec func() (*ocr.Recognizer, error), ps *processedState, workers int) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Infof("Watching %s (debounced) ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		deb := newDebouncer(300 * time.Millisecond)
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				// screenshots are often written in several chunks
				if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					name := filepath.Base(ev.Name)
					if !capture.Supported(name) {
						continue
					}
					deb.touch(name, time.Now())
				}
			case <-ticker.C:
				for _, name := range deb.ready(time.Now()) {
					fileCh <- name
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Warnf("watch error: %v", err)
			}
		}
	}()

	// Use worker pool for watch events too; blocks until the watcher closes.
	runWorkerPool(dir, newRec, ps, nil, workers, fileCh)
	return nil
}

// runWorkerPool feeds initial names and names from extraCh to workers. Each worker
// owns one Recognizer. It returns once every channel is drained.
func runWorkerPool(dir string, newRec func() (*ocr.Recognizer, error), ps *processedState, initial []string, workers int, extraCh ...<-chan string) {
	fileCh := make(chan string, 1024)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		rec, err := newRec()
		if err != nil {
			log.Errorf("worker %d: ocr engine: %v", i, err)
			continue
		}
		wg.Add(1)
		go func(rec *ocr.Recognizer) {
			defer wg.Done()
			defer rec.Close()
			for name := range fileCh {
				processSingleFile(context.Background(), os.Stdout, rec, dir, name, ps)
			}
		}(rec)
	}
	// feed initial, then relay extra channels; close once all are drained
	go func() {
		for _, f := range initial {
			fileCh <- f
		}
		var relay sync.WaitGroup
		for _, ch := range extraCh {
			relay.Add(1)
			go func(c <-chan string) {
				defer relay.Done()
				for n := range c {
					fileCh <- n
				}
			}(ch)
		}
		relay.Wait()
		close(fileCh)
	}()
	wg.Wait()
}

// processSingleFile recognizes one screenshot, prints a summary to out and stores it.
func processSingleFile(ctx context.Context, out io.Writer, rec *ocr.Recognizer, dir, name string, ps *processedState) {
	if id, ok := ps.get(name); ok {
		log.Debugf("SKIP already recognized %s (id=%d)", name, id)
		return
	}
	filePath := filepath.Join(dir, name)
	img, err := capture.Load(filePath)
	if err != nil {
		log.Warnf("load %s: %v", name, err)
		return
	}
	b := img.Bounds()
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	results, err := rec.RecognizeAs(ctx, stem, img)
	if err != nil {
		log.Warnf("recognize %s: %v", name, err)
		if db != nil && errors.Is(err, imgproc.ErrRegionOutOfBounds) {
			failed := models.Recognition{FileName: name, Source: "watch", StorePath: filePath, Width: b.Dx(), Height: b.Dy(), Failed: true, FailedReason: err.Error()}
			if err := db.Create(&failed).Error; err != nil {
				log.Errorf("store failed recognition %s: %v", name, err)
			}
		}
		return
	}

	row := models.NewRecognition(name, "watch", b.Dx(), b.Dy(), results)
	row.StorePath = filePath
	fmt.Fprintln(out, summaryLine(name, results, row))
	if hasCur {
		ranks, ok := ocr.Ranks(results)
		if est, err := rank.ComputeChanges(rank.AssignSelections(unrankedLobby(), ranks, ok), current); err == nil {
			for _, ch := range est.Changes {
				fmt.Fprintf(out, "  %s: %+.0f\n", ch.Placement, ch.Delta)
			}
		} else {
			fmt.Fprintf(out, "  no estimate: %v\n", err)
		}
	}

	if db != nil {
		if err := db.Create(&row).Error; err != nil {
			log.Errorf("store recognition %s: %v", name, err)
			return
		}
		log.Infof("NEW recognition id=%d file=%s resolved=%d", row.ID, name, row.Resolved)
	}
	ps.put(name, row.ID)

	if moveTo != "" {
		if err := moveToProcessed(filePath, moveTo, name); err != nil {
			log.Warnf("failed to move processed file %s: %v", name, err)
		} else {
			log.Debugf("moved processed %s to %s", name, moveTo)
		}
	}
}

func unrankedLobby() []rank.Rank {
	l := make([]rank.Rank, rank.LobbySize)
	for i := range l {
		l[i] = rank.Unranked
	}
	return l
}

// summaryLine renders "file: r0 r1 ... | avg X (closest)"; unresolved slots print "?".
func summaryLine(name string, results []ocr.RegionResult, row models.Recognition) string {
	parts := make([]string, len(results))
	for i, r := range results {
		if r.Resolved {
			parts[i] = r.Rank.String()
		} else {
			parts[i] = "?"
		}
	}
	line := fmt.Sprintf("%s: %s", name, strings.Join(parts, " "))
	if row.Average != nil {
		line += fmt.Sprintf(" | avg %.0f (%s)", *row.Average, row.Closest)
	}
	return line
}

// moveToProcessed moves a screenshot into dst/<name>, falling back to copy+remove
// across filesystems.
func moveToProcessed(srcFullPath, dstDir, name string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dstDir, name)
	if err := os.Rename(srcFullPath, dst); err == nil {
		return nil
	}
	return copyRemove(srcFullPath, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}
