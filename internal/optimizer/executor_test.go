package optimizer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	engine "github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer/executor"
	"github.com/rxtech-lab/funding-breakout/internal/strategy"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/version"
	"github.com/rxtech-lab/funding-breakout/mocks"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() types.ParameterSet {
	return types.ParameterSet{
		ATRStopNegative: 3.5,
		ATRStopNeutral:  2.25,
		ATRStopPositive: 1.75,
		BreakevenR:      1.2,
		TrailStartR:     2.4,
		SoftExitR:       4.0,
	}
}

func TestOverrides(t *testing.T) {
	overrides := Overrides(sampleParams())

	assert.Equal(t, map[string]string{
		types.ParamATRStopNegative: "3.5",
		types.ParamATRStopNeutral:  "2.25",
		types.ParamATRStopPositive: "1.75",
		types.ParamBreakevenR:      "1.2",
		types.ParamTrailStartR:     "2.4",
		types.ParamSoftExitR:       "4",
	}, overrides)

	applied, err := strategy.DefaultParams().ApplyOverrides(overrides)
	require.NoError(t, err)
	assert.Equal(t, sampleParams(), applied.ParameterSet)
}

func TestInProcessExecutor(t *testing.T) {
	bars, funding := mocks.GenerateRun(7, 800)
	factory := func() (datasource.DataSource, error) {
		return datasource.NewInMemoryDataSource(bars, funding), nil
	}

	t.Run("Runs the engine with the requested parameters", func(t *testing.T) {
		resultsFolder := t.TempDir()
		exec := NewInProcessExecutor(engine.DefaultConfig(), resultsFolder, factory, logger.NewNopLogger(), nil)

		req := executor.Request{RunID: RunID(sampleParams()), Params: sampleParams()}

		record, err := exec.Execute(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, req.RunID, record.RunID)
		assert.Equal(t, sampleParams().AsMap(), record.Params)
		assert.True(t, record.Score().IsSome())
		assert.FileExists(t, engine.StatsPath(resultsFolder, strategy.Name, req.RunID))
	})

	t.Run("Invalid parameters fail before running", func(t *testing.T) {
		exec := NewInProcessExecutor(engine.DefaultConfig(), "", factory, logger.NewNopLogger(), nil)

		params := sampleParams()
		params.BreakevenR = -1

		_, err := exec.Execute(context.Background(), executor.Request{RunID: "run_bad", Params: params})
		assert.True(t, errors.IsUsage(err))
	})

	t.Run("Missing data file", func(t *testing.T) {
		config := engine.DefaultConfig()
		config.BarsPath = filepath.Join(t.TempDir(), "missing.parquet")

		exec := NewInProcessExecutor(config, "", DuckDBDataSourceFactory(logger.NewNopLogger()), logger.NewNopLogger(), nil)

		_, err := exec.Execute(context.Background(), executor.Request{RunID: "run_missing", Params: sampleParams()})
		assert.True(t, errors.HasCode(err, errors.ErrCodeBacktestNoDatasource))
	})

	t.Run("Data source factory error", func(t *testing.T) {
		failing := func() (datasource.DataSource, error) {
			return nil, os.ErrPermission
		}
		exec := NewInProcessExecutor(engine.DefaultConfig(), "", failing, logger.NewNopLogger(), nil)

		_, err := exec.Execute(context.Background(), executor.Request{RunID: "run_denied", Params: sampleParams()})
		assert.True(t, errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestProcessExecutor_Args(t *testing.T) {
	exec := NewProcessExecutor("backtest", "config.yaml", "results", logger.NewNopLogger())

	args := exec.Args(executor.Request{RunID: "run_abcd1234", Params: sampleParams()})
	assert.Equal(t, []string{
		"run",
		"--config", "config.yaml",
		"--run-id", "run_abcd1234",
		"--results-folder", "results",
		"--parameter", "atr_stop_negative=3.5",
		"--parameter", "atr_stop_neutral=2.25",
		"--parameter", "atr_stop_positive=1.75",
		"--parameter", "breakeven_r=1.2",
		"--parameter", "soft_exit_r=4",
		"--parameter", "trail_start_r=2.4",
	}, args)
}

// fakeBacktest writes a script standing in for the backtest binary. It
// writes a stats file for the run id found in its arguments.
func fakeBacktest(t *testing.T, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	path := filepath.Join(t.TempDir(), "backtest")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))

	return path
}

func TestProcessExecutor_Execute(t *testing.T) {
	t.Run("Reads the stats of the run", func(t *testing.T) {
		binary := fakeBacktest(t, `dir="$7/donchian_funding/$5"
mkdir -p "$dir"
printf 'run_id: %s\nmetrics:\n  score: 1.5\n  total_trades: 90\n' "$5" > "$dir/stats.yaml"
`)
		resultsFolder := t.TempDir()
		exec := NewProcessExecutor(binary, "config.yaml", resultsFolder, logger.NewNopLogger())

		record, err := exec.Execute(context.Background(), executor.Request{RunID: "run_abcd1234", Params: sampleParams()})
		require.NoError(t, err)
		assert.Equal(t, "run_abcd1234", record.RunID)
		assert.Equal(t, 1.5, record.Metrics[types.MetricScore])
		assert.Equal(t, 90.0, record.Metrics[types.MetricTotalTrades])
	})

	t.Run("Non-zero exit keeps the output", func(t *testing.T) {
		binary := fakeBacktest(t, "echo 'bad parameter' >&2\nexit 3\n")
		exec := NewProcessExecutor(binary, "config.yaml", t.TempDir(), logger.NewNopLogger())

		_, err := exec.Execute(context.Background(), executor.Request{RunID: "run_abcd1234", Params: sampleParams()})
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeRunFailed))
		assert.Contains(t, err.Error(), "bad parameter")
	})

	t.Run("Missing stats file", func(t *testing.T) {
		binary := fakeBacktest(t, "exit 0\n")
		exec := NewProcessExecutor(binary, "config.yaml", t.TempDir(), logger.NewNopLogger())

		_, err := exec.Execute(context.Background(), executor.Request{RunID: "run_abcd1234", Params: sampleParams()})
		assert.True(t, errors.HasCode(err, errors.ErrCodeResultsCorrupt))
	})

	t.Run("Stats of another run", func(t *testing.T) {
		binary := fakeBacktest(t, `dir="$7/donchian_funding/$5"
mkdir -p "$dir"
printf 'run_id: run_other\n' > "$dir/stats.yaml"
`)
		exec := NewProcessExecutor(binary, "config.yaml", t.TempDir(), logger.NewNopLogger())

		_, err := exec.Execute(context.Background(), executor.Request{RunID: "run_abcd1234", Params: sampleParams()})
		assert.True(t, errors.HasCode(err, errors.ErrCodeResultsCorrupt))
	})
}

func TestProcessExecutor_CheckBinary(t *testing.T) {
	original := version.Version
	t.Cleanup(func() { version.Version = original })

	version.Version = "1.2.0"

	tests := []struct {
		name      string
		body      string
		expectErr bool
	}{
		{name: "matching minor", body: "echo 'backtest version 1.2.7'\n"},
		{name: "development binary", body: "echo 'backtest version main'\n"},
		{name: "older minor", body: "echo 'backtest version 1.1.0'\n", expectErr: true},
		{name: "no version flag", body: "echo 'unknown flag' >&2\nexit 2\n", expectErr: true},
		{name: "unparseable output", body: "echo 'hello'\n", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewProcessExecutor(fakeBacktest(t, tt.body), "config.yaml", t.TempDir(), logger.NewNopLogger())

			err := exec.CheckBinary(context.Background())
			if !tt.expectErr {
				require.NoError(t, err)

				return
			}

			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}
