package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/remi/internal/model"
)

// DefaultConcurrency is the number of checks run at once unless configured.
const DefaultConcurrency = 4

// BatchProcessor checks many bookmarks concurrently.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each target.
	pipelineFactory func() *Pipeline

	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent checks.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRequestInterval spaces the start of consecutive checks by at least
// interval. Zero disables the limit.
func WithRequestInterval(interval time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		if interval > 0 {
			b.limiter = rate.NewLimiter(rate.Every(interval), 1)
		} else {
			b.limiter = nil
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch checks every target and returns one report per target, in
// input order. Failed checks are recorded in their report; the returned
// error is non-nil only when ctx ends the batch early.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.CheckReport, error) {
	bp.logger.Info("starting batch check",
		"total", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Each goroutine writes only its own index.
	results := make([]*model.CheckReport, len(targets))
	for i, target := range targets {
		results[i] = model.NewCheckReport(target)
	}

	err := bp.run(ctx, results, nil)

	bp.logger.Info("batch check complete",
		"total", len(targets),
		"elapsed", time.Since(startTime),
	)
	return results, err
}

// ProcessBatchWithCallback checks every target and calls callback as each
// check completes. The callback runs on the worker goroutine and must be
// safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.CheckReport, index int),
) error {
	reports := make([]*model.CheckReport, len(targets))
	for i, target := range targets {
		reports[i] = model.NewCheckReport(target)
	}
	return bp.run(ctx, reports, callback)
}

func (bp *BatchProcessor) run(
	ctx context.Context,
	reports []*model.CheckReport,
	callback func(report *model.CheckReport, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, report := range reports {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.SetError(err)
				return err
			}
			if bp.limiter != nil {
				if err := bp.limiter.Wait(ctx); err != nil {
					report.SetError(err)
					return err
				}
			}

			bp.logger.Debug("checking bookmark",
				"target", report.Target,
				"index", i+1,
				"total", len(reports),
			)

			// Failures are recorded in the report and must not cancel the
			// other checks.
			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				bp.logger.Debug("check failed", "target", report.Target, "error", err)
			}
			if callback != nil {
				callback(report, i)
			}
			return nil
		})
	}

	return g.Wait()
}
