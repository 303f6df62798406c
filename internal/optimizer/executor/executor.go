// Package executor defines how the optimizer hands a single parameter set to
// a backtest and gets its RunRecord back.
package executor

import (
	"context"

	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// Request is one run of the grid.
type Request struct {
	RunID  string
	Params types.ParameterSet
}

// Executor runs a backtest for one request. Implementations must be safe for
// concurrent use; the harness calls Execute from several goroutines.
type Executor interface {
	Execute(ctx context.Context, req Request) (types.RunRecord, error)
}
