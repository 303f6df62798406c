package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os/exec"
	"slices"

	engine "github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/optimizer/executor"
	"github.com/rxtech-lab/funding-breakout/internal/strategy"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/version"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
)

// maxOutputTail bounds the child output kept in a run error.
const maxOutputTail = 2048

// ProcessExecutor runs the backtest binary once per request and reads the
// stats file it leaves in the results folder.
type ProcessExecutor struct {
	Binary        string
	ConfigPath    string
	ResultsFolder string
	log           *logger.Logger
}

var _ executor.Executor = (*ProcessExecutor)(nil)

// NewProcessExecutor creates an executor for binary.
func NewProcessExecutor(binary, configPath, resultsFolder string, log *logger.Logger) *ProcessExecutor {
	return &ProcessExecutor{
		Binary:        binary,
		ConfigPath:    configPath,
		ResultsFolder: resultsFolder,
		log:           log,
	}
}

// CheckBinary asks the binary for its version and rejects one whose results
// could not be ranked together with this build's.
func (e *ProcessExecutor) CheckBinary(ctx context.Context) error {
	output, err := exec.CommandContext(ctx, e.Binary, "--version").CombinedOutput()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to query version of %s", e.Binary)
	}

	binaryVersion, err := version.ParseVersionOutput(string(output))
	if err != nil {
		return err
	}

	if err := version.CheckCompatibility(version.GetVersion(), binaryVersion); err != nil {
		return err
	}

	e.log.Info("Using backtest binary", zap.String("binary", e.Binary), zap.String("version", binaryVersion))

	return nil
}

// Args returns the command line for a request, without the binary.
func (e *ProcessExecutor) Args(req executor.Request) []string {
	args := []string{
		"run",
		"--config", e.ConfigPath,
		"--run-id", req.RunID,
		"--results-folder", e.ResultsFolder,
	}

	overrides := Overrides(req.Params)
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		args = append(args, "--parameter", fmt.Sprintf("%s=%s", key, overrides[key]))
	}

	return args
}

// Execute implements executor.Executor.
func (e *ProcessExecutor) Execute(ctx context.Context, req executor.Request) (types.RunRecord, error) {
	cmd := exec.CommandContext(ctx, e.Binary, e.Args(req)...)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	e.log.Debug("Starting backtest process", zap.String("run_id", req.RunID), zap.Strings("args", cmd.Args))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.RunRecord{}, ctxErr
		}

		return types.RunRecord{}, errors.Wrapf(errors.ErrCodeRunFailed, err, "backtest process failed: %s", tail(output.Bytes()))
	}

	record, err := types.ReadRunRecord(engine.StatsPath(e.ResultsFolder, strategy.Name, req.RunID))
	if err != nil {
		return types.RunRecord{}, errors.Wrap(errors.ErrCodeResultsCorrupt, "failed to read run stats", err)
	}

	if record.RunID != req.RunID {
		return types.RunRecord{}, errors.Newf(errors.ErrCodeResultsCorrupt, "stats belong to %s, expected %s", record.RunID, req.RunID)
	}

	return record, nil
}

func tail(output []byte) string {
	output = bytes.TrimSpace(output)
	if len(output) > maxOutputTail {
		output = output[len(output)-maxOutputTail:]
	}

	return string(output)
}
