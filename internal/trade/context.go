package trade

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// Exit holds the terminal fields of a trade. They are set together, once.
type Exit struct {
	Time         time.Time
	Price        float64
	PnL          float64
	RMultiple    float64
	HoldingHours float64
	Reason       types.ExitReason
	Features     types.ExitFeatures
}

type liquidation struct {
	handle types.OrderHandle
	reason types.ExitReason
}

// Context is the state of the single open trade.
type Context struct {
	Symbol      string
	EntryTime   time.Time
	EntryPrice  float64
	Quantity    float64
	ATRAtEntry  float64
	Regime      types.RegimeSnapshot
	Features    types.EntryFeatures
	InitialStop float64

	MaxPrice       float64
	CurrentStop    float64
	ExitReasonHint optional.Option[types.ExitReason]

	EntryHandle types.OrderHandle
	StopHandle  types.OrderHandle

	pending optional.Option[liquidation]
	exit    optional.Option[Exit]
}

// RiskPerUnit is the entry-time stop distance per unit of quantity.
func (c *Context) RiskPerUnit() float64 {
	return c.ATRAtEntry * c.Regime.StopMultiplier
}

// RMultipleAt returns the unrealized R multiple at price. Zero when the risk is degenerate.
func (c *Context) RMultipleAt(price float64) float64 {
	risk := c.RiskPerUnit()
	if risk <= 0 {
		return 0
	}

	return (price - c.EntryPrice) / risk
}

// LiquidationPending reports whether a closing market order is outstanding.
func (c *Context) LiquidationPending() bool {
	return c.pending.IsSome()
}

// IsClosed reports whether the terminal fields are set.
func (c *Context) IsClosed() bool {
	return c.exit.IsSome()
}

// Exit returns the terminal fields if the trade is closed.
func (c *Context) Exit() optional.Option[Exit] {
	return c.exit
}

func (c *Context) close(at time.Time, price float64, reason types.ExitReason) error {
	if c.exit.IsSome() {
		return errors.New(errors.ErrCodeTradeNotOpen, "trade already closed")
	}

	qty := math.Abs(c.Quantity)
	pnl := (price - c.EntryPrice) * qty

	var r float64
	if denom := c.RiskPerUnit() * qty; denom > 0 {
		r = pnl / denom
	}

	hours := at.Sub(c.EntryTime).Hours()

	c.exit = optional.Some(Exit{
		Time:         at,
		Price:        price,
		PnL:          pnl,
		RMultiple:    r,
		HoldingHours: hours,
		Reason:       reason,
		Features: types.ExitFeatures{
			Weekday:       at.UTC().Weekday().String(),
			Hour:          at.UTC().Hour(),
			HoldingBucket: types.HoldingBucketFor(hours),
			ExitReason:    reason,
		},
	})
	c.pending = optional.None[liquidation]()

	return nil
}

// Record flattens a closed trade into a trade log row.
func (c *Context) Record() (types.TradeRecord, error) {
	exit, err := c.exit.Take()
	if err != nil {
		return types.TradeRecord{}, errors.New(errors.ErrCodeTradeNotOpen, "trade is still open")
	}

	return types.TradeRecord{
		Symbol:            c.Symbol,
		EntryTime:         c.EntryTime,
		EntryPrice:        c.EntryPrice,
		ExitTime:          exit.Time,
		ExitPrice:         exit.Price,
		Quantity:          c.Quantity,
		PnL:               exit.PnL,
		RMultiple:         exit.RMultiple,
		HoldingHours:      exit.HoldingHours,
		ATRAtEntry:        c.ATRAtEntry,
		ATRStopMultiplier: c.Regime.StopMultiplier,
		RiskMultiplier:    c.Regime.RiskMultiplier,
		InitialStop:       c.InitialStop,
		FinalStop:         c.CurrentStop,
		MaxPrice:          c.MaxPrice,
		Entry:             c.Features,
		Exit:              exit.Features,
	}, nil
}
