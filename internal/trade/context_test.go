package trade

import (
	"testing"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() *Context {
	return &Context{
		Symbol:      "BTCUSDT",
		EntryTime:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EntryPrice:  100,
		Quantity:    2,
		ATRAtEntry:  2,
		Regime:      types.RegimeSnapshot{StopMultiplier: 2.5, RiskMultiplier: 1},
		InitialStop: 95,
		MaxPrice:    100,
		CurrentStop: 95,
	}
}

func TestContextTerminalFieldsAllOrNothing(t *testing.T) {
	c := newContext()

	_, err := c.Record()
	assert.True(t, errors.HasCode(err, errors.ErrCodeTradeNotOpen))
	assert.True(t, c.Exit().IsNone())

	require.NoError(t, c.close(c.EntryTime.Add(6*time.Hour), 110, types.ExitReasonSoftExit))
	assert.True(t, c.IsClosed())

	exit := c.Exit().Unwrap()
	assert.Equal(t, 20.0, exit.PnL)
	assert.Equal(t, 2.0, exit.RMultiple)
	assert.Equal(t, 6.0, exit.HoldingHours)
	assert.Equal(t, types.HoldingBucketShort, exit.Features.HoldingBucket)

	// a second close must not overwrite the terminal fields
	err = c.close(c.EntryTime.Add(9*time.Hour), 90, types.ExitReasonChannelExit)
	assert.True(t, errors.HasCode(err, errors.ErrCodeTradeNotOpen))
	assert.Equal(t, 110.0, c.Exit().Unwrap().Price)

	record, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, types.ExitReasonSoftExit, record.Exit.ExitReason)
	assert.Equal(t, 2.5, record.ATRStopMultiplier)
}

func TestContextDegenerateRisk(t *testing.T) {
	c := newContext()
	c.ATRAtEntry = 0

	assert.Equal(t, 0.0, c.RMultipleAt(120))
	require.NoError(t, c.close(c.EntryTime.Add(time.Hour), 120, types.ExitReasonEndOfData))
	assert.Equal(t, 0.0, c.Exit().Unwrap().RMultiple)
	assert.Equal(t, 40.0, c.Exit().Unwrap().PnL)
}

func TestContextHoldingBuckets(t *testing.T) {
	for hours, bucket := range map[int]types.HoldingBucket{
		3:  types.HoldingBucketShort,
		12: types.HoldingBucketMedium,
		47: types.HoldingBucketMedium,
		48: types.HoldingBucketLong,
	} {
		c := newContext()
		require.NoError(t, c.close(c.EntryTime.Add(time.Duration(hours)*time.Hour), 101, types.ExitReasonTrailingStop))
		assert.Equal(t, bucket, c.Exit().Unwrap().Features.HoldingBucket, "hours %d", hours)
	}
}
