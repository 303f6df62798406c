// Package optimizer explores the risk-parameter grid: it enumerates parameter
// sets, runs a backtest for each, and ranks the stored results.
package optimizer

import (
	"context"
	"io"

	engine "github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer/executor"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/writers"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
)

// Optimizer ties a Config to the generator, harness and ranker.
type Optimizer struct {
	config  Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New creates an optimizer. m may be nil.
func New(config Config, log *logger.Logger, m *metrics.Metrics) *Optimizer {
	return &Optimizer{config: config, log: log, metrics: m}
}

// Executor builds the executor named by the configuration.
func (o *Optimizer) Executor() (executor.Executor, error) {
	switch o.config.Executor {
	case ExecutorProcess:
		return NewProcessExecutor(o.config.Binary, o.config.BacktestConfig, o.config.ResultsFolder, o.log), nil
	case ExecutorInProcess:
		config, err := engine.LoadConfig(o.config.BacktestConfig)
		if err != nil {
			return nil, err
		}

		return NewInProcessExecutor(config, o.config.ResultsFolder, DuckDBDataSourceFactory(o.log), o.log, o.metrics), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown executor %q", o.config.Executor)
	}
}

// Run executes every grid point not yet stored in the metrics file.
func (o *Optimizer) Run(ctx context.Context, exec executor.Executor, progress io.Writer) (Summary, error) {
	runs, err := NewGenerator(o.config.Grid).Generate()
	if err != nil {
		return Summary{}, err
	}

	writer := writers.NewRunMetricsWriter(o.config.MetricsPath())
	if err := writer.Initialize(); err != nil {
		return Summary{}, errors.Wrap(errors.ErrCodeRunFailed, "failed to open run metrics", err)
	}
	defer writer.Close()

	harness := NewHarness(exec, writer,
		WithWorkers(o.config.Workers),
		WithHarnessLogger(o.log),
		WithHarnessMetrics(o.metrics),
		WithProgress(progress),
	)

	return harness.Run(ctx, runs)
}

// Report ranks the stored results, prints the leading runs to w and exports
// the configured number of runs. It returns the full ranking.
func (o *Optimizer) Report(w io.Writer) ([]types.RunRecord, error) {
	records, skipped, err := LoadResults(o.config.MetricsPath())
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		o.log.Warn("Ignoring malformed run records", zap.Int("lines", skipped))
	}

	ranked, err := Rank(records, o.config.Filters)
	if err != nil {
		return nil, err
	}

	o.log.Info("Ranked runs",
		zap.Int("records", len(records)),
		zap.Int("passed", len(ranked)),
	)

	if o.config.TopN > 0 {
		PrintTop(w, Top(ranked, o.config.TopN))
	}

	if o.config.ExportTop > 0 {
		if err := ExportTop(Top(ranked, o.config.ExportTop), o.config.TopPath()); err != nil {
			return nil, err
		}
	}

	return ranked, nil
}
