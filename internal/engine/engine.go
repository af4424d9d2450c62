package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/NamanBalaji/bulkdl/internal/locator"
	"github.com/NamanBalaji/bulkdl/internal/logger"
	"github.com/NamanBalaji/bulkdl/internal/progress"
)

// DefaultDelay is the pause after each successful download.
const DefaultDelay = 100 * time.Millisecond

// ErrInvalidConcurrency is returned when Run is asked for fewer than one worker.
var ErrInvalidConcurrency = errors.New("max concurrency must be at least 1")

// Fetcher downloads url into destPath and returns the number of bytes written.
type Fetcher interface {
	Fetch(ctx context.Context, url, destPath string) (int64, error)
}

// Recorder persists outcomes as they resolve.
type Recorder interface {
	Record(runID uuid.UUID, o Outcome) error
}

// Options configures a Coordinator. The zero value is usable.
type Options struct {
	// Normalizer derives filenames; nil means the default convention.
	Normalizer *locator.Normalizer

	// Delay is slept by a task after a successful download. Zero disables it.
	Delay time.Duration

	// RequestsPerSecond caps fetch starts across all workers. Zero means unlimited.
	RequestsPerSecond float64

	Observer Observer
	Recorder Recorder
}

// DefaultOptions returns Options with the courtesy delay enabled.
func DefaultOptions() Options {
	return Options{Delay: DefaultDelay}
}

// Coordinator downloads a list of locators with bounded parallelism.
type Coordinator struct {
	fetcher    Fetcher
	normalizer *locator.Normalizer
	delay      time.Duration
	limiter    *rate.Limiter
	observer   Observer
	recorder   Recorder
}

// New creates a Coordinator that fetches through fetcher.
func New(fetcher Fetcher, opts Options) *Coordinator {
	c := &Coordinator{
		fetcher:    fetcher,
		normalizer: opts.Normalizer,
		delay:      opts.Delay,
		observer:   opts.Observer,
		recorder:   opts.Recorder,
	}

	if c.normalizer == nil {
		c.normalizer = locator.NewNormalizer(locator.DefaultOffset)
	}

	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return c
}

// run holds the state shared by the tasks of a single Run call.
type run struct {
	id       uuid.UUID
	destDir  string
	tracker  *progress.Tracker
	locks    *fileLocks
	outcomes []Outcome
}

// Run fetches every locator into destDir using at most maxConcurrency
// concurrent tasks and blocks until all of them have resolved.
//
// Per-locator failures never abort the run; they are reported as failed
// outcomes in the returned Summary. Run itself only fails when its arguments
// are invalid or destDir cannot be created.
func (c *Coordinator) Run(ctx context.Context, locators []string, destDir string, maxConcurrency int) (*Summary, error) {
	if maxConcurrency < 1 {
		return nil, ErrInvalidConcurrency
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		logger.Errorf("Failed to create destination directory %s: %v", destDir, err)
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	start := time.Now()
	r := &run{
		id:       uuid.New(),
		destDir:  destDir,
		tracker:  progress.NewTracker(len(locators)),
		locks:    newFileLocks(),
		outcomes: make([]Outcome, len(locators)),
	}

	logger.Infof("Run %s: %d locator(s) into %s with %d worker(s)", r.id, len(locators), destDir, maxConcurrency)

	if len(locators) > 0 {
		index := make(map[uuid.UUID]int, len(locators))
		ids := make([]uuid.UUID, len(locators))
		for i := range locators {
			ids[i] = uuid.New()
			index[ids[i]] = i
		}

		stopCh := make(chan struct{})
		qp := NewQueueProcessor(maxConcurrency, func(id uuid.UUID) error {
			i := index[id]
			out := c.process(ctx, r, id, locators[i])
			r.outcomes[i] = out
			c.record(r.id, out)
			return out.Err
		}, stopCh)

		// Earlier entries get higher priority so dispatch follows input order.
		for i, id := range ids {
			qp.Enqueue(id, len(ids)-i)
		}

		qp.Wait()
		close(stopCh)
	}

	summary := summarize(r.id, destDir, r.outcomes, time.Since(start))
	logger.Infof("Run %s finished in %v: %d successful (%d downloaded, %d skipped), %d failed",
		r.id, summary.Duration, summary.Successful, summary.Downloaded, summary.Skipped, summary.Failed)

	return summary, nil
}

// process resolves a single locator.
func (c *Coordinator) process(ctx context.Context, r *run, id uuid.UUID, loc string) Outcome {
	out := Outcome{TaskID: id, Locator: loc}

	res, err := c.normalizer.Derive(loc)
	if err != nil {
		out.Seq = r.tracker.Current()
		return c.fail(r, out, err)
	}

	out.Filename = res.Filename
	out.Path = filepath.Join(r.destDir, res.Filename)
	out.Seq = r.tracker.IncrementAndGet()

	release := r.locks.lock(res.Filename)
	defer release()

	if _, err := os.Stat(out.Path); err == nil {
		out.Kind = OutcomeSkipped
		logger.Debugf("Skipping %s, %s already exists", loc, out.Path)
		c.emit(r, EventSkipped, out)
		return out
	}

	if err := ctx.Err(); err != nil {
		return c.fail(r, out, err)
	}

	c.emit(r, EventDownloading, out)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fail(r, out, err)
		}
	}

	logger.Debugf("Fetching %s -> %s", res.URL, out.Path)
	n, err := c.fetcher.Fetch(ctx, res.URL, out.Path)
	if err != nil {
		return c.fail(r, out, err)
	}
	out.Bytes = n

	if c.delay > 0 {
		t := time.NewTimer(c.delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	out.Kind = OutcomeDownloaded
	c.emit(r, EventDownloaded, out)

	return out
}

func (c *Coordinator) fail(r *run, out Outcome, err error) Outcome {
	out.Kind = OutcomeFailed
	out.Err = err
	logger.Warnf("Failed to download %s: %v", out.Locator, err)
	c.emit(r, EventFailed, out)
	return out
}

func (c *Coordinator) emit(r *run, kind EventKind, out Outcome) {
	if c.observer == nil {
		return
	}

	c.observer.OnEvent(Event{
		Kind:     kind,
		Seq:      out.Seq,
		Total:    r.tracker.Total(),
		Filename: out.Filename,
		Locator:  out.Locator,
		Bytes:    out.Bytes,
		Err:      out.Err,
	})
}

func (c *Coordinator) record(runID uuid.UUID, out Outcome) {
	if c.recorder == nil {
		return
	}

	if err := c.recorder.Record(runID, out); err != nil {
		logger.Errorf("Failed to record outcome for %s: %v", out.Locator, err)
	}
}
