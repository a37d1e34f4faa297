package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"sync"

	log "github.com/sirupsen/logrus"

	"dacalc/pkg/imgproc"
	"dacalc/pkg/rank"
)

// CropSink receives diagnostic images. Failures are logged, never fatal.
type CropSink interface {
	Put(name string, img image.Image) error
}

// Options controls the contrast sweep applied to every badge crop.
type Options struct {
	// Levels are tried in order; the first one whose OCR text parses wins.
	Levels  []float64
	Gray    imgproc.GrayMode
	Invert  bool
	Upscale int
	// Workers is the number of regions recognized in parallel, one engine each.
	Workers int
	Sink    CropSink
}

// DefaultLevels returns the contrast sweep 10, 20, ..., 100.
func DefaultLevels() []float64 {
	levels := make([]float64, 0, 10)
	for c := 10; c <= 100; c += 10 {
		levels = append(levels, float64(c))
	}
	return levels
}

func DefaultOptions() Options {
	return Options{
		Levels:  DefaultLevels(),
		Gray:    imgproc.GrayLuminosity,
		Invert:  true,
		Upscale: 2,
		Workers: 1,
	}
}

func (o Options) normalized() Options {
	if len(o.Levels) == 0 {
		o.Levels = DefaultLevels()
	}
	if o.Upscale < 1 {
		o.Upscale = 1
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Workers > imgproc.RegionCount {
		o.Workers = imgproc.RegionCount
	}
	return o
}

// Stage is one intermediate image of the preprocessing chain.
type Stage struct {
	Name  string
	Image *image.NRGBA
}

// Stages runs the preprocessing chain for a single contrast level and returns
// every intermediate in order. The last stage is what the OCR engine sees.
func Stages(crop image.Image, level float64, o Options) []Stage {
	out := make([]Stage, 0, 4)
	img := imgproc.Contrast(crop, level)
	out = append(out, Stage{fmt.Sprintf("contrast%03.0f", level), img})
	img = imgproc.Grayscale(img, o.Gray)
	out = append(out, Stage{"gray-" + o.Gray.String(), img})
	if o.Invert {
		img = imgproc.Invert(img)
		out = append(out, Stage{"invert", img})
	}
	if o.Upscale > 1 {
		img = imgproc.Upscale(img, o.Upscale)
		out = append(out, Stage{fmt.Sprintf("x%d", o.Upscale), img})
	}
	return out
}

// Prepare returns the image passed to OCR for one contrast level.
func Prepare(crop image.Image, level float64, o Options) *image.NRGBA {
	st := Stages(crop, level, o)
	return st[len(st)-1].Image
}

// RegionResult is the outcome for one badge slot. Results are positional:
// Index matches the region order top to bottom.
type RegionResult struct {
	Index    int       `json:"index"`
	Rank     rank.Rank `json:"-"`
	Resolved bool      `json:"resolved"`
	// Text is the normalized OCR output of the winning (or last) attempt.
	Text     string  `json:"text,omitempty"`
	Contrast float64 `json:"contrast,omitempty"`
	Attempts int     `json:"attempts"`
}

// MarshalJSON emits the rank name only for resolved regions.
func (r RegionResult) MarshalJSON() ([]byte, error) {
	type plain RegionResult
	out := struct {
		plain
		Rank *rank.Rank `json:"rank,omitempty"`
	}{plain: plain(r)}
	if r.Resolved {
		rk := r.Rank
		out.Rank = &rk
	}
	return json.Marshal(out)
}

// Ranks splits results into positional ranks and resolved flags, the shape
// expected by rank.AssignSelections.
func Ranks(results []RegionResult) ([]rank.Rank, []bool) {
	rs := make([]rank.Rank, len(results))
	ok := make([]bool, len(results))
	for i, r := range results {
		rs[i] = r.Rank
		ok[i] = r.Resolved
	}
	return rs, ok
}

// Recognizer owns a fixed pool of OCR engines. An engine is held by at most
// one worker at a time, so Recognize is safe for concurrent use.
type Recognizer struct {
	opts    Options
	engines []Engine
	pool    chan Engine

	mu     sync.RWMutex
	closed bool
}

// NewRecognizer creates opts.Workers engines from factory.
func NewRecognizer(factory EngineFactory, opts Options) (*Recognizer, error) {
	if factory == nil {
		return nil, ErrNoEngines
	}
	opts = opts.normalized()
	r := &Recognizer{opts: opts, pool: make(chan Engine, opts.Workers)}
	for i := 0; i < opts.Workers; i++ {
		e, err := factory()
		if err != nil {
			r.closeEngines()
			return nil, fmt.Errorf("create engine %d: %w", i, err)
		}
		r.engines = append(r.engines, e)
		r.pool <- e
	}
	return r, nil
}

// Options returns the effective options after defaults were applied.
func (r *Recognizer) Options() Options { return r.opts }

func (r *Recognizer) closeEngines() error {
	var first error
	for _, e := range r.engines {
		if err := e.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close waits for running recognitions and releases all engines.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.closeEngines()
}

// Recognize extracts the eight badge regions of capture and resolves each one.
// It returns exactly eight results, or an error when the capture cannot hold
// the regions or ctx is done.
func (r *Recognizer) Recognize(ctx context.Context, capture image.Image) ([]RegionResult, error) {
	return r.RecognizeAs(ctx, "capture", capture)
}

// RecognizeAs is Recognize with name used as prefix for diagnostic crops.
func (r *Recognizer) RecognizeAs(ctx context.Context, name string, capture image.Image) ([]RegionResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}

	crops, layout, err := imgproc.ExtractRegions(capture)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"capture": name,
		"width":   layout.Width,
		"height":  layout.Height,
		"badge":   fmt.Sprintf("%dx%d", layout.BadgeWidth, layout.BadgeHeight),
	}).Debug("regions extracted")

	results := make([]RegionResult, len(crops))
	jobs := make(chan int, len(crops))
	for i := range crops {
		jobs <- i
	}
	close(jobs)

	workers := r.opts.Workers
	if workers > len(crops) {
		workers = len(crops)
	}
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var e Engine
			select {
			case e = <-r.pool:
			case <-ctx.Done():
				errs[w] = ctx.Err()
				return
			}
			defer func() { r.pool <- e }()
			for i := range jobs {
				res, err := r.recognizeRegion(ctx, e, name, i, crops[i])
				results[i] = res
				if err != nil {
					errs[w] = err
					return
				}
			}
		}(w)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *Recognizer) recognizeRegion(ctx context.Context, e Engine, name string, idx int, crop *image.NRGBA) (RegionResult, error) {
	res := RegionResult{Index: idx}
	r.put(fmt.Sprintf("%s-region%d", name, idx), crop)
	for _, level := range r.opts.Levels {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		prepared := Prepare(crop, level, r.opts)
		res.Attempts++
		res.Contrast = level
		entry := log.WithFields(log.Fields{"capture": name, "region": idx, "contrast": level})
		text, err := e.Text(prepared)
		if err != nil {
			entry.WithError(err).Warn("ocr attempt failed")
			continue
		}
		res.Text = normalizeOCRText(text)
		rk, ok := rank.ParseText(text)
		if !ok {
			entry.Debugf("no rank in %q", snippet(res.Text, 40))
			continue
		}
		res.Rank = rk
		res.Resolved = true
		entry.WithField("rank", rk.String()).Debug("region resolved")
		r.put(fmt.Sprintf("%s-region%d-c%03.0f", name, idx, level), prepared)
		return res, nil
	}
	log.WithFields(log.Fields{"capture": name, "region": idx, "attempts": res.Attempts}).Info("region unresolved")
	return res, nil
}

func (r *Recognizer) put(name string, img image.Image) {
	if r.opts.Sink == nil {
		return
	}
	if err := r.opts.Sink.Put(name, img); err != nil {
		log.WithError(err).WithField("name", name).Warn("store crop failed")
	}
}
