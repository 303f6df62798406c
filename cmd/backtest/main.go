package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	engine_types "github.com/rxtech-lab/funding-breakout/internal/backtest/engine"
	engine "github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/version"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

// exitUsage is the exit status of invalid configuration or parameters.
const exitUsage = 2

// parseParameters turns repeated key=value flags into engine overrides.
func parseParameters(values []string) (map[string]string, error) {
	overrides := make(map[string]string, len(values))

	for _, value := range values {
		key, raw, ok := strings.Cut(value, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be key=value", value)
		}

		overrides[key] = strings.TrimSpace(raw)
	}

	return overrides, nil
}

func newLogger(level string) (*logger.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid log level", err)
	}

	return logger.NewLoggerWithLevel(parsed)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := engine.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	overrides, err := parseParameters(cmd.StringSlice("parameter"))
	if err != nil {
		return err
	}

	backtest := engine.NewBacktestEngineV1(engine.WithLogger(log))
	if err := backtest.InitializeWithConfig(config); err != nil {
		return err
	}

	if err := backtest.SetParameterOverrides(overrides); err != nil {
		return err
	}

	runID := cmd.String("run-id")
	if runID == "" {
		runID = optimizer.RunID(backtest.Config().Strategy.ParameterSet)
	}

	if err := backtest.SetRunID(runID); err != nil {
		return err
	}

	if folder := cmd.String("results-folder"); folder != "" {
		if err := backtest.SetResultsFolder(folder); err != nil {
			return err
		}
	}

	ds, err := datasource.NewDataSource(":memory:", log)
	if err != nil {
		return err
	}
	defer ds.Close()

	if err := backtest.SetDataSource(ds); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	callbacks := engine_types.LifecycleCallbacks{}

	if cmd.Bool("progress") {
		onStart := engine_types.OnRunStartCallback(func(runID string, total int) error {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", runID)),
				progressbar.OptionShowCount(),
			)

			return nil
		})
		onData := engine_types.OnProcessDataCallback(func(current int, total int) error {
			return bar.Set(current)
		})

		callbacks.OnRunStart = &onStart
		callbacks.OnProcessData = &onData
	}

	record, err := backtest.Run(ctx, callbacks)
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return err
	}

	printRecord(os.Stdout, record)

	return nil
}

func printRecord(w io.Writer, record types.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(record.RunID)
	t.AppendHeader(table.Row{"metric", "value"})

	for _, key := range record.MetricKeys() {
		t.AppendRow(table.Row{key, strconv.FormatFloat(record.Metrics[key], 'f', -1, 64)})
	}

	t.Render()
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := engine.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, schema)

	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Version: version.GetVersion(),
		Usage:   "Run the funding breakout strategy over historical data",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single backtest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the backtest config `FILE`",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "parameter",
						Aliases: []string{"p"},
						Usage:   "Strategy parameter override as `key=value`, repeatable",
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "Run id, derived from the risk parameters when empty",
					},
					&cli.StringFlag{
						Name:  "results-folder",
						Usage: "Folder the run results are written to, overrides the config",
					},
					&cli.StringFlag{
						Name:  "log-level",
						Usage: "Minimum log level",
						Value: "info",
					},
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the backtest config",
				Action: schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)

		if errors.IsUsage(err) {
			os.Exit(exitUsage)
		}

		os.Exit(1)
	}
}
