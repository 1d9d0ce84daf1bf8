// Package driver orchestrates the generation run: it walks the work queue,
// skips items already recorded in the ledger, runs the generate+validate
// cycle per item, and decides between per-item recovery and whole-run abort.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"stampmeta/internal/gen"
	"stampmeta/internal/ledger"
	"stampmeta/internal/validate"
	"stampmeta/pkg/models"
)

// Generator is the single remote call the driver depends on. Errors
// returned by implementations are expected to be *gen.ClassifiedError.
type Generator interface {
	Generate(ctx context.Context, id, prompt string) (string, error)
}

// AbortClass distinguishes why a run stopped early.
type AbortClass int

const (
	AbortNone AbortClass = iota
	AbortQuota
	AbortOther
)

func (a AbortClass) String() string {
	switch a {
	case AbortQuota:
		return "quota"
	case AbortOther:
		return "other"
	default:
		return "none"
	}
}

// Summary is the run report: how many items were newly processed, skipped
// as already done, and handed in, plus the abort class if the run stopped.
type Summary struct {
	Processed int
	Skipped   int
	Total     int
	Abort     AbortClass
}

const (
	DefaultMaxFormatRetries = 3
	defaultFormatRetryDelay = 2 * time.Second
)

type Options struct {
	MaxFormatRetries int
	FormatRetryDelay time.Duration
	ShowProgress     bool
}

type Driver struct {
	gen              Generator
	ledger           *ledger.Ledger
	maxFormatRetries int
	formatRetryDelay time.Duration
	showProgress     bool

	// replaced in tests
	sleep func(time.Duration)
}

func New(generator Generator, led *ledger.Ledger, opts Options) *Driver {
	if opts.MaxFormatRetries <= 0 {
		opts.MaxFormatRetries = DefaultMaxFormatRetries
	}
	if opts.FormatRetryDelay <= 0 {
		opts.FormatRetryDelay = defaultFormatRetryDelay
	}
	return &Driver{
		gen:              generator,
		ledger:           led,
		maxFormatRetries: opts.MaxFormatRetries,
		formatRetryDelay: opts.FormatRetryDelay,
		showProgress:     opts.ShowProgress,
		sleep:            time.Sleep,
	}
}

// Run processes items sequentially. It returns a non-nil error only for
// failures that invalidate resumability (ledger I/O); everything else is
// reported through the Summary.
func (d *Driver) Run(ctx context.Context, items []models.QueueItem) (Summary, error) {
	summary := Summary{Total: len(items)}
	slog.Info("starting run", "total", len(items), "already_done", d.ledger.Len())

	var bar *progressbar.ProgressBar
	if d.showProgress {
		bar = progressbar.NewOptions(len(items),
			progressbar.OptionSetDescription("generating"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, item := range items {
		if bar != nil {
			_ = bar.Add(1)
		}

		id := ledger.NormalizeID(item.ID)
		if id == "" {
			slog.Warn("queue item without id, skipping")
			continue
		}
		if d.ledger.Contains(id) {
			slog.Debug("already recorded, skipping", "stamp_id", id)
			summary.Skipped++
			continue
		}

		slog.Info("processing", "stamp_id", id)
		abort, err := d.processItem(ctx, id, item.Prompt)
		if err != nil {
			return summary, err
		}
		if abort != AbortNone {
			summary.Abort = abort
			slog.Error("aborting run", "class", abort.String(), "stamp_id", id)
			break
		}
		summary.Processed++
	}

	slog.Info("run finished",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"total", summary.Total,
		"abort", summary.Abort.String(),
	)
	return summary, nil
}

// processItem runs the generate+validate cycle for one stamp. A validation
// failure triggers a fresh generation attempt (not a re-parse) up to
// maxFormatRetries times; exhaustion records the placeholder. A non-nil
// error means the ledger could not be written.
func (d *Driver) processItem(ctx context.Context, id, prompt string) (AbortClass, error) {
	for attempt := 0; attempt < d.maxFormatRetries; attempt++ {
		raw, err := d.gen.Generate(ctx, id, prompt)
		if err != nil {
			var cerr *gen.ClassifiedError
			if errors.As(err, &cerr) && cerr.Kind == gen.FailureQuota {
				return AbortQuota, nil
			}
			slog.Error("generation failed", "stamp_id", id, "error", err)
			return AbortOther, nil
		}

		result, verr := validate.Parse(id, raw)
		if verr != nil {
			if attempt < d.maxFormatRetries-1 {
				slog.Warn("output failed validation, regenerating",
					"stamp_id", id, "attempt", attempt+1, "error", verr)
				d.sleep(d.formatRetryDelay)
				continue
			}
			slog.Warn("format retries exhausted, recording placeholder", "stamp_id", id)
			result = models.NewPlaceholderResult(id)
		}

		if err := d.ledger.Append(result); err != nil {
			return AbortNone, fmt.Errorf("recording result for %s: %w", id, err)
		}
		return AbortNone, nil
	}

	// maxFormatRetries is >= 1, so the loop always returns from inside.
	return AbortOther, nil
}
