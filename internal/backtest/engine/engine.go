package engine

import (
	"context"

	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnRunStartCallback is called when a run begins, before the first bar.
type OnRunStartCallback func(runID string, totalDataPoints int) error

// OnRunEndCallback is called when a run ends (always called via defer).
// resultFolderPath is empty when nothing was written.
type OnRunEndCallback func(runID string, resultFolderPath string, err error)

// OnProcessDataCallback is called for each data point processed.
type OnProcessDataCallback func(current int, total int) error

// OnTradeClosedCallback is called for each finalized trade.
type OnTradeClosedCallback func(record types.TradeRecord)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
	OnTradeClosed *OnTradeClosedCallback
}

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetParameterOverrides applies named strategy parameter overrides on top
	// of the configuration. Unknown keys and bad values are rejected.
	SetParameterOverrides(overrides map[string]string) error
	// SetRunID sets the identifier stored on the run record.
	SetRunID(runID string) error
	// SetResultsFolder sets the output directory for saving backtest results.
	// The results folder will be structured as: <folder>/<strategy_name>/<run_id>
	SetResultsFolder(folder string) error
	// SetDataSource sets the data source for the engine.
	SetDataSource(dataSource datasource.DataSource) error
	// Run runs the engine over the configured data and returns the run summary.
	// The context can be used to cancel the backtest operation.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.RunRecord, error)
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
