package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer"
	"github.com/rxtech-lab/funding-breakout/internal/version"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const exitUsage = 2

func loadConfig(cmd *cli.Command) (optimizer.Config, error) {
	config, err := optimizer.LoadConfig(cmd.String("config"))
	if err != nil {
		return optimizer.Config{}, err
	}

	if workers := cmd.Int("workers"); workers > 0 {
		config.Workers = workers
	}

	if top := cmd.Int("top"); top > 0 {
		config.TopN = top
	}

	return config, nil
}

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid log level", err)
	}

	return logger.NewLoggerWithLevel(level)
}

// serveMetrics exposes m on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("Serving metrics", zap.String("addr", addr))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server stopped", zap.Error(err))
		}
	}()
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	m := metrics.New()
	if addr := cmd.String("metrics-addr"); addr != "" {
		serveMetrics(ctx, addr, m, log)
	}

	o := optimizer.New(config, log, m)

	exec, err := o.Executor()
	if err != nil {
		return err
	}

	if process, ok := exec.(*optimizer.ProcessExecutor); ok {
		if err := process.CheckBinary(ctx); err != nil {
			return err
		}
	}

	var progress io.Writer
	if !cmd.Bool("no-progress") {
		progress = os.Stderr
	}

	summary, err := o.Run(ctx, exec, progress)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "runs: %d succeeded, %d failed, %d skipped of %d\n",
		summary.Succeeded, summary.Failed, summary.Skipped, summary.Total)

	_, err = o.Report(os.Stdout)

	return err
}

func rankAction(ctx context.Context, cmd *cli.Command) error {
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ranked, err := optimizer.New(config, log, nil).Report(os.Stdout)
	if err != nil {
		return err
	}

	if len(ranked) == 0 {
		fmt.Fprintln(os.Stdout, "no run passes the rank filters")
	}

	return nil
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "config",
			Aliases:  []string{"c"},
			Usage:    "Path to the optimizer config `FILE`",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "top",
			Usage: "Number of leading runs to print, overrides the config",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level",
			Value: "info",
		},
	}
}

func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schema, err := optimizer.ConfigSchema()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(os.Stdout, schema)

	return err
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "optimize",
		Version: version.GetVersion(),
		Usage:   "Explore the risk-parameter grid of the funding breakout strategy",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run every pending parameter set, then rank the results",
				Flags: append(commonFlags(),
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent runs, overrides the config",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve prometheus metrics on `ADDR`, e.g. :9090",
					},
					&cli.BoolFlag{
						Name:  "no-progress",
						Usage: "Disable the progress bar",
					},
				),
				Action: runAction,
			},
			{
				Name:   "rank",
				Usage:  "Rank the stored results without running anything",
				Flags:  commonFlags(),
				Action: rankAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the optimizer config",
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
