package engine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/scoring"
	"github.com/rxtech-lab/funding-breakout/internal/stats"
	"github.com/rxtech-lab/funding-breakout/internal/strategy"
	"github.com/rxtech-lab/funding-breakout/internal/trade"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/writers"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	statsFileName  = "stats.yaml"
	tradesFileName = "trades.parquet"
)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	initialized   bool
	runID         string
	resultsFolder string
	log           *logger.Logger
	metrics       *metrics.Metrics
	datasource    datasource.DataSource
}

// Option configures a BacktestEngineV1.
type Option func(*BacktestEngineV1)

// WithLogger sets the engine logger. Initialize creates a production logger otherwise.
func WithLogger(log *logger.Logger) Option {
	return func(b *BacktestEngineV1) {
		b.log = log
	}
}

// WithMetrics records trade and stop counters of each run.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *BacktestEngineV1) {
		b.metrics = m
	}
}

func NewBacktestEngineV1(opts ...Option) *BacktestEngineV1 {
	b := &BacktestEngineV1{
		config: DefaultConfig(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed, err := ParseConfig([]byte(config))
	if err != nil {
		return err
	}

	return b.InitializeWithConfig(parsed)
}

// InitializeWithConfig is Initialize for an already decoded configuration.
func (b *BacktestEngineV1) InitializeWithConfig(config BacktestEngineV1Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	if b.log == nil {
		log, err := logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}

		b.log = log
	}

	b.config = config
	b.initialized = true

	if b.resultsFolder == "" {
		b.resultsFolder = config.ResultsFolder
	}

	b.log.Debug("Backtest engine initialized",
		zap.String("symbol", config.Symbol),
		zap.String("bars", config.BarsPath),
		zap.String("funding", config.FundingPath),
	)

	return nil
}

// SetParameterOverrides implements engine.Engine.
func (b *BacktestEngineV1) SetParameterOverrides(overrides map[string]string) error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	params, err := b.config.Strategy.ApplyOverrides(overrides)
	if err != nil {
		return err
	}

	b.config.Strategy = params

	return nil
}

// SetRunID implements engine.Engine.
func (b *BacktestEngineV1) SetRunID(runID string) error {
	b.runID = runID

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(dataSource datasource.DataSource) error {
	b.datasource = dataSource

	return nil
}

// Config returns the effective configuration, overrides included.
func (b *BacktestEngineV1) Config() BacktestEngineV1Config {
	return b.config
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to generate schema", err)
	}

	return schema, nil
}

// run holds the per-run collaborators. Nothing is shared between runs.
type run struct {
	venue    *BacktestTrading
	strategy *strategy.Strategy
	writer   *writers.TradesWriter
	trades   []types.TradeRecord
	equity   []types.EquityPoint
	onTrade  *engine.OnTradeClosedCallback
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (record types.RunRecord, err error) {
	if err := b.preRunCheck(); err != nil {
		return types.RunRecord{}, err
	}

	resultFolderPath := ""
	if b.resultsFolder != "" {
		resultFolderPath = ResultFolder(b.resultsFolder, strategy.Name, b.runID)
	}

	if callbacks.OnRunEnd != nil {
		defer func() {
			(*callbacks.OnRunEnd)(b.runID, resultFolderPath, err)
		}()
	}

	log := b.log.WithFields(zap.String("run_id", b.runID))

	if err := b.datasource.Initialize(b.config.BarsPath, b.config.FundingPath); err != nil {
		return types.RunRecord{}, errors.Wrap(errors.ErrCodeBacktestNoDatasource, "failed to initialize data source", err)
	}

	interval, err := b.config.BarInterval()
	if err != nil {
		return types.RunRecord{}, err
	}

	total, err := b.datasource.Count(b.config.StartTime, b.config.EndTime)
	if err != nil {
		return types.RunRecord{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to get data count", err)
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(b.runID, total); err != nil {
			return types.RunRecord{}, err
		}
	}

	funding, err := b.loadFunding()
	if err != nil {
		return types.RunRecord{}, err
	}

	r, err := b.newRun(resultFolderPath, log)
	if err != nil {
		return types.RunRecord{}, err
	}
	defer r.close()

	r.onTrade = callbacks.OnTradeClosed

	log.Info("Backtest started",
		zap.Int("bars", total),
		zap.Int("funding_samples", len(funding)),
	)

	fundingIndex := 0
	processed := 0

	for bar, err := range b.datasource.Bars(b.config.StartTime, b.config.EndTime, interval) {
		if err != nil {
			return types.RunRecord{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read data", err)
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.RunRecord{}, ctxErr
		}

		processed++

		bar.Symbol = b.config.Symbol
		if !bar.IsUsable() {
			log.Debug("Skipping unusable bar", zap.Time("time", bar.Time))

			continue
		}

		r.venue.UpdateMarketData(bar)

		if err := r.dispatchFills(); err != nil {
			return types.RunRecord{}, err
		}

		for fundingIndex < len(funding) && !funding[fundingIndex].Time.After(bar.Time) {
			r.strategy.OnFunding(funding[fundingIndex])
			fundingIndex++
		}

		if err := r.strategy.OnBar(bar); err != nil {
			return types.RunRecord{}, errors.Wrapf(errors.ErrCodeRunFailed, err, "failed to process bar at %s", bar.Time.Format(time.RFC3339))
		}

		if err := r.dispatchFills(); err != nil {
			return types.RunRecord{}, err
		}

		r.equity = append(r.equity, types.EquityPoint{Time: bar.Time, Equity: r.venue.GetAccountInfo().Equity})

		if callbacks.OnProcessData != nil {
			if err := (*callbacks.OnProcessData)(processed, total); err != nil {
				return types.RunRecord{}, err
			}
		}
	}

	if err := r.strategy.Finish(); err != nil {
		return types.RunRecord{}, errors.Wrap(errors.ErrCodeRunFailed, "failed to close trade at end of data", err)
	}

	if err := r.dispatchFills(); err != nil {
		return types.RunRecord{}, err
	}

	// the last point carries the final liquidation
	if n := len(r.equity); n > 0 {
		r.equity[n-1].Equity = r.venue.GetAccountInfo().Equity
	}

	record = types.RunRecord{
		RunID:     b.runID,
		Timestamp: time.Now().UTC(),
		Params:    b.config.Strategy.AsMap(),
		Metrics: stats.Summarize(stats.Input{
			Trades:         r.trades,
			Equity:         r.equity,
			InitialCapital: b.config.InitialCapital,
			TotalFees:      r.venue.GetAccountInfo().TotalFees,
		}),
	}
	record = scoring.Apply(record)

	if resultFolderPath != "" {
		if err := b.writeResults(r, record, resultFolderPath); err != nil {
			return types.RunRecord{}, err
		}
	}

	log.Info("Backtest finished",
		zap.Int("trades", len(r.trades)),
		zap.Float64("final_equity", record.Metrics[types.MetricFinalEquity]),
		zap.Float64("score", record.Metrics[types.MetricScore]),
	)

	return record, nil
}

func (b *BacktestEngineV1) newRun(resultFolderPath string, log *logger.Logger) (*run, error) {
	commission := commission_fee.GetCommissionFeeHandler(b.config.Broker, b.config.FeePercent)
	venue := NewBacktestTrading(b.config.Symbol, b.config.InitialCapital, commission, b.config.DecimalPrecision, log)

	strat, err := strategy.New(b.config.Symbol, b.config.Strategy, venue, venue, log, trade.WithMetrics(b.metrics))
	if err != nil {
		return nil, err
	}

	r := &run{venue: venue, strategy: strat}

	if resultFolderPath != "" {
		r.writer = writers.NewTradesWriter(filepath.Join(resultFolderPath, tradesFileName))
		if err := r.writer.Initialize(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to initialize trades writer", err)
		}
	}

	return r, nil
}

// dispatchFills hands queued venue fills to the strategy and records the
// trades they close.
func (r *run) dispatchFills() error {
	for _, fill := range r.venue.Drain() {
		record := r.strategy.OnFill(fill)
		if record.IsNone() {
			continue
		}

		closed := record.Unwrap()
		r.trades = append(r.trades, closed)

		if r.writer != nil {
			if err := r.writer.Write(closed); err != nil {
				return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write trade", err)
			}
		}

		if r.onTrade != nil {
			(*r.onTrade)(closed)
		}
	}

	return nil
}

func (r *run) close() {
	if r.writer != nil {
		_ = r.writer.Close()
	}
}

// loadFunding reads every funding sample up to the end bound. The start bound
// is not applied so the estimator window is populated from the first bar.
func (b *BacktestEngineV1) loadFunding() ([]types.FundingSample, error) {
	var samples []types.FundingSample

	for sample, err := range b.datasource.Funding(optional.None[time.Time](), b.config.EndTime) {
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read funding rates", err)
		}

		samples = append(samples, sample)
	}

	return samples, nil
}

func (b *BacktestEngineV1) writeResults(r *run, record types.RunRecord, resultFolderPath string) error {
	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestNoResultsDir, "failed to create result folder", err)
	}

	if err := r.writer.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write trades", err)
	}

	if counts, err := r.writer.ExitReasonCounts(); err == nil {
		b.log.Debug("Trades per exit reason", zap.String("run_id", record.RunID), zap.Any("counts", counts))
	}

	// Write stats to file
	if err := types.WriteRunRecord(filepath.Join(resultFolderPath, statsFileName), record); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write stats", err)
	}

	config, err := yaml.Marshal(b.config)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to marshal config", err)
	}

	if err := os.WriteFile(filepath.Join(resultFolderPath, "config.yaml"), config, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write config", err)
	}

	return nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine is not initialized")
	}

	if b.datasource == nil {
		b.log.Error("No datasource set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no datasource set")
	}

	return nil
}
