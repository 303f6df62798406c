package optimizer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer/executor"
	"github.com/rxtech-lab/funding-breakout/internal/scoring"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/writers"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Summary counts the outcome of a harness pass.
type Summary struct {
	Total     int
	Skipped   int
	Succeeded int
	Failed    int
}

// HarnessOption configures a Harness.
type HarnessOption func(*Harness)

// WithWorkers bounds the number of concurrent runs.
func WithWorkers(workers int) HarnessOption {
	return func(h *Harness) {
		h.workers = workers
	}
}

// WithHarnessLogger sets the logger.
func WithHarnessLogger(log *logger.Logger) HarnessOption {
	return func(h *Harness) {
		h.log = log
	}
}

// WithHarnessMetrics records run outcomes.
func WithHarnessMetrics(m *metrics.Metrics) HarnessOption {
	return func(h *Harness) {
		h.metrics = m
	}
}

// WithProgress renders a progress bar on w. Nil disables it.
func WithProgress(w io.Writer) HarnessOption {
	return func(h *Harness) {
		h.progress = w
	}
}

// Harness executes a grid of runs in parallel and appends every successful
// RunRecord to the run metrics file. Runs already present in that file are
// skipped, so an interrupted optimization resumes where it stopped.
type Harness struct {
	executor executor.Executor
	writer   *writers.RunMetricsWriter
	workers  int
	log      *logger.Logger
	metrics  *metrics.Metrics
	progress io.Writer
}

// NewHarness creates a harness. The writer must be initialized.
func NewHarness(exec executor.Executor, writer *writers.RunMetricsWriter, opts ...HarnessOption) *Harness {
	h := &Harness{
		executor: exec,
		writer:   writer,
		workers:  1,
		log:      logger.NewNopLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.workers < 1 {
		h.workers = 1
	}

	return h
}

// Run executes runs. A failed run is logged and counted, never fatal.
// Cancelling ctx stops scheduling; runs that did not finish are absent from
// the metrics file and the context error is returned.
func (h *Harness) Run(ctx context.Context, runs []Run) (Summary, error) {
	done, err := h.completed()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Total: len(runs)}
	pending := make([]Run, 0, len(runs))

	for _, r := range runs {
		if _, ok := done[r.ID]; ok {
			summary.Skipped++
			h.metrics.RunSkipped()

			continue
		}

		pending = append(pending, r)
	}

	h.log.Info("Optimization started",
		zap.Int("total", summary.Total),
		zap.Int("skipped", summary.Skipped),
		zap.Int("pending", len(pending)),
		zap.Int("workers", h.workers),
	)

	bar := h.newBar(len(pending))

	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(h.workers)

	for _, r := range pending {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			ok := h.execute(ctx, r)

			mu.Lock()
			if ok {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			mu.Unlock()

			if bar != nil {
				_ = bar.Add(1)
			}

			return nil
		})
	}

	_ = g.Wait()

	if bar != nil {
		_ = bar.Finish()
	}

	h.log.Info("Optimization finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)

	return summary, ctx.Err()
}

// execute runs one request and appends its record.
func (h *Harness) execute(ctx context.Context, r Run) bool {
	finish := h.metrics.RunStarted()
	log := h.log.WithFields(zap.String("run_id", r.ID))

	record, err := h.executor.Execute(ctx, executor.Request{RunID: r.ID, Params: r.Params})
	if err != nil {
		finish(metrics.StatusFailed)
		log.Error("Run failed", zap.Error(err))

		return false
	}

	record = normalize(record, r)

	if err := h.writer.Write(record); err != nil {
		finish(metrics.StatusFailed)
		log.Error("Failed to store run record", zap.Error(err))

		return false
	}

	finish(metrics.StatusSucceeded)
	log.Debug("Run finished",
		zap.Float64("score", record.Metrics[types.MetricScore]),
		zap.Float64("total_trades", record.Metrics[types.MetricTotalTrades]),
	)

	return true
}

// completed returns the run ids already stored in the metrics file.
func (h *Harness) completed() (map[string]struct{}, error) {
	records, skipped, err := writers.ReadRunRecords(h.writer.GetOutputPath())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultsCorrupt, "failed to read existing results", err)
	}

	if skipped > 0 {
		h.log.Warn("Ignoring malformed lines in run metrics", zap.Int("lines", skipped))
	}

	done := make(map[string]struct{}, len(records))
	for _, record := range records {
		done[record.RunID] = struct{}{}
	}

	return done, nil
}

func (h *Harness) newBar(total int) *progressbar.ProgressBar {
	if h.progress == nil || total == 0 {
		return nil
	}

	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(h.progress),
		progressbar.OptionSetDescription(fmt.Sprintf("Optimizing %d parameter sets", total)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionClearOnFinish(),
	)
}

// normalize keys the record by the grid run and guarantees params and score.
func normalize(record types.RunRecord, r Run) types.RunRecord {
	record.RunID = r.ID

	if record.Params == nil {
		record.Params = r.Params.AsMap()
	}

	if record.Score().IsNone() {
		record = scoring.Apply(record)
	}

	return record
}
