package optimizer

import (
	"context"
	"strconv"

	engine_types "github.com/rxtech-lab/funding-breakout/internal/backtest/engine"
	engine "github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer/executor"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
)

// DataSourceFactory opens a fresh data source for one run.
type DataSourceFactory func() (datasource.DataSource, error)

// DuckDBDataSourceFactory opens an in-memory DuckDB data source per run.
func DuckDBDataSourceFactory(log *logger.Logger) DataSourceFactory {
	return func() (datasource.DataSource, error) {
		return datasource.NewDataSource(":memory:", log)
	}
}

// InProcessExecutor runs the backtest engine inside the current process.
// Every run gets its own engine and data source.
type InProcessExecutor struct {
	config        engine.BacktestEngineV1Config
	resultsFolder string
	newDataSource DataSourceFactory
	log           *logger.Logger
	metrics       *metrics.Metrics
}

var _ executor.Executor = (*InProcessExecutor)(nil)

// NewInProcessExecutor creates an executor. An empty resultsFolder skips the
// per-run result files.
func NewInProcessExecutor(config engine.BacktestEngineV1Config, resultsFolder string, newDataSource DataSourceFactory, log *logger.Logger, m *metrics.Metrics) *InProcessExecutor {
	return &InProcessExecutor{
		config:        config,
		resultsFolder: resultsFolder,
		newDataSource: newDataSource,
		log:           log,
		metrics:       m,
	}
}

// Execute implements executor.Executor.
func (e *InProcessExecutor) Execute(ctx context.Context, req executor.Request) (types.RunRecord, error) {
	backtest := engine.NewBacktestEngineV1(
		engine.WithLogger(e.log.Named(req.RunID)),
		engine.WithMetrics(e.metrics),
	)

	if err := backtest.InitializeWithConfig(e.config); err != nil {
		return types.RunRecord{}, err
	}

	if err := backtest.SetParameterOverrides(Overrides(req.Params)); err != nil {
		return types.RunRecord{}, err
	}

	if err := backtest.SetRunID(req.RunID); err != nil {
		return types.RunRecord{}, err
	}

	if err := backtest.SetResultsFolder(e.resultsFolder); err != nil {
		return types.RunRecord{}, err
	}

	ds, err := e.newDataSource()
	if err != nil {
		return types.RunRecord{}, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open data source", err)
	}

	defer func() {
		if closeErr := ds.Close(); closeErr != nil {
			e.log.Warn("Failed to close data source", zap.String("run_id", req.RunID), zap.Error(closeErr))
		}
	}()

	if err := backtest.SetDataSource(ds); err != nil {
		return types.RunRecord{}, err
	}

	return backtest.Run(ctx, engine_types.LifecycleCallbacks{})
}

// Overrides renders a parameter set as engine parameter overrides, in the
// same form the backtest CLI accepts.
func Overrides(params types.ParameterSet) map[string]string {
	values := params.AsMap()
	overrides := make(map[string]string, len(values))

	for key, value := range values {
		overrides[key] = strconv.FormatFloat(value, 'g', -1, 64)
	}

	return overrides
}
