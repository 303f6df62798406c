// Package trade owns the lifecycle of a single long trade: entry, protective
// stop management, exits, and the finalized trade record.
package trade

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/metrics"
	"github.com/rxtech-lab/funding-breakout/internal/trading"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StopPricePrecision is the number of decimals kept on stop prices.
const StopPricePrecision = 2

// State of the machine.
type State string

const (
	StateFlat   State = "FLAT"
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
)

// Policy holds the R thresholds that drive stop management.
type Policy struct {
	BreakevenR           float64 `yaml:"breakeven_r" json:"breakeven_r" validate:"gt=0"`
	BreakevenATRFraction float64 `yaml:"breakeven_atr_frac" json:"breakeven_atr_frac" validate:"gte=0"`
	TrailStartR          float64 `yaml:"trail_start_r" json:"trail_start_r" validate:"gt=0"`
	SoftExitR            float64 `yaml:"soft_exit_r" json:"soft_exit_r" validate:"gt=0"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		BreakevenR:           1.0,
		BreakevenATRFraction: 0.75,
		TrailStartR:          2.0,
		SoftExitR:            3.0,
	}
}

// EntryInput describes a confirmed entry.
type EntryInput struct {
	Time     time.Time
	Price    float64
	ATR      float64
	Quantity float64
	Regime   types.RegimeSnapshot
	Features types.EntryFeatures
}

// TickInput is the per-bar view the machine needs while a trade is open.
type TickInput struct {
	Time  time.Time
	Close float64
	// ATR is the current ATR, used for the trailing level.
	ATR float64
	// TrendMA is the moving average guarding the soft exit. Zero disables it.
	TrendMA float64
	// ChannelFloor is the exit channel lower band. Zero disables the hard exit.
	ChannelFloor float64
}

// Option configures a Machine.
type Option func(*Machine)

// WithMetrics records stop updates and closed trades.
func WithMetrics(m *metrics.Metrics) Option {
	return func(machine *Machine) {
		machine.metrics = m
	}
}

// Machine drives one instrument through FLAT, OPEN and CLOSED.
// It is not safe for concurrent use; a run feeds it sequentially.
type Machine struct {
	symbol  string
	gateway trading.OrderGateway
	policy  Policy
	log     *logger.Logger
	metrics *metrics.Metrics

	current *Context
	last    *Context
}

// NewMachine creates a flat machine.
func NewMachine(symbol string, gateway trading.OrderGateway, policy Policy, log *logger.Logger, opts ...Option) *Machine {
	m := &Machine{
		symbol:  symbol,
		gateway: gateway,
		policy:  policy,
		log:     log,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current state. CLOSED is reported until the next Open.
func (m *Machine) State() State {
	switch {
	case m.current != nil:
		return StateOpen
	case m.last != nil:
		return StateClosed
	default:
		return StateFlat
	}
}

// Current returns the open trade, if any.
func (m *Machine) Current() optional.Option[*Context] {
	if m.current == nil {
		return optional.None[*Context]()
	}

	return optional.Some(m.current)
}

// Open enters a trade. It returns false without error when the input cannot
// produce a trade (no quantity or no volatility estimate).
func (m *Machine) Open(in EntryInput) (bool, error) {
	if m.current != nil {
		return false, errors.Newf(errors.ErrCodeTradeAlreadyOpen, "trade on %s already open since %s", m.symbol, m.current.EntryTime)
	}

	if in.Quantity <= 0 || in.ATR <= 0 || in.Price <= 0 {
		return false, nil
	}

	stop := RoundStop(in.Price - in.Regime.StopMultiplier*in.ATR)
	if stop <= 0 {
		m.log.Debug("Stop distance exceeds price, skipping entry",
			zap.Float64("price", in.Price),
			zap.Float64("atr", in.ATR),
			zap.Float64("stop_multiplier", in.Regime.StopMultiplier),
		)

		return false, nil
	}

	entryHandle, err := m.gateway.SubmitMarket(m.symbol, in.Quantity)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeOrderFailed, "failed to submit entry order", err)
	}

	stopHandle, err := m.gateway.SubmitStop(m.symbol, -in.Quantity, stop)
	if err != nil {
		// never hold a position without its protective stop
		if _, unwindErr := m.gateway.SubmitMarket(m.symbol, -in.Quantity); unwindErr != nil {
			err = errors.Join(err, unwindErr)
		}

		return false, errors.Wrap(errors.ErrCodeOrderFailed, "failed to submit protective stop", err)
	}

	m.current = &Context{
		Symbol:         m.symbol,
		EntryTime:      in.Time,
		EntryPrice:     in.Price,
		Quantity:       in.Quantity,
		ATRAtEntry:     in.ATR,
		Regime:         in.Regime,
		Features:       in.Features,
		InitialStop:    stop,
		MaxPrice:       in.Price,
		CurrentStop:    stop,
		ExitReasonHint: optional.Some(types.ExitReasonInitialStop),
		EntryHandle:    entryHandle,
		StopHandle:     stopHandle,
	}
	m.last = nil

	m.log.Info("Trade opened",
		zap.String("symbol", m.symbol),
		zap.Time("time", in.Time),
		zap.Float64("price", in.Price),
		zap.Float64("quantity", in.Quantity),
		zap.Float64("stop", stop),
		zap.Float64("funding_z", in.Regime.ZScore),
	)

	return true, nil
}

// OnTick updates the open trade with one bar. Steps run in a fixed order:
// high-water mark, R, hard channel exit, breakeven, trailing, soft exit.
func (m *Machine) OnTick(in TickInput) error {
	c := m.current
	if c == nil || c.LiquidationPending() {
		return nil
	}

	c.MaxPrice = math.Max(c.MaxPrice, in.Close)
	r := c.RMultipleAt(in.Close)

	if in.ChannelFloor > 0 && in.Close < in.ChannelFloor {
		return m.liquidate(types.ExitReasonChannelExit)
	}

	if r >= m.policy.BreakevenR && c.MaxPrice-c.EntryPrice >= m.policy.BreakevenATRFraction*c.ATRAtEntry {
		if err := m.ratchet(c.EntryPrice, types.ExitReasonBreakevenStop); err != nil {
			return err
		}
	}

	if r >= m.policy.TrailStartR && in.ATR > 0 {
		candidate := RoundStop(c.MaxPrice - c.Regime.StopMultiplier*in.ATR)
		if err := m.ratchet(candidate, types.ExitReasonTrailingStop); err != nil {
			return err
		}
	}

	if r >= m.policy.SoftExitR && in.TrendMA > 0 && in.Close < in.TrendMA {
		return m.liquidate(types.ExitReasonSoftExit)
	}

	return nil
}

// ForceClose liquidates the open trade, used when the data ends.
func (m *Machine) ForceClose() error {
	if m.current == nil || m.current.LiquidationPending() {
		return nil
	}

	return m.liquidate(types.ExitReasonEndOfData)
}

// OnFill closes the trade when the fill belongs to its stop or its pending
// liquidation. An entry fill replaces the requested quantity and price with
// what the venue executed. Every other fill, including any fill while flat,
// is ignored.
func (m *Machine) OnFill(fill types.Fill) optional.Option[types.TradeRecord] {
	c := m.current
	if c == nil || !fill.IsFilled() {
		return optional.None[types.TradeRecord]()
	}

	var reason types.ExitReason

	switch {
	case fill.OrderID == c.EntryHandle:
		m.applyEntryFill(fill)

		return optional.None[types.TradeRecord]()
	case fill.OrderID == c.StopHandle:
		reason = c.ExitReasonHint.TakeOr(types.ExitReasonInitialStop)

		if pending, err := c.pending.Take(); err == nil {
			if cancelErr := m.gateway.Cancel(pending.handle); cancelErr != nil {
				m.log.Warn("Failed to cancel liquidation after stop fill", zap.Error(cancelErr))
			}
		}
	case c.pending.IsSome() && fill.OrderID == c.pending.Unwrap().handle:
		reason = c.pending.Unwrap().reason
	default:
		return optional.None[types.TradeRecord]()
	}

	if err := c.close(fill.Time, fill.Price, reason); err != nil {
		m.log.Error("Failed to close trade", zap.Error(err))

		return optional.None[types.TradeRecord]()
	}

	record, err := c.Record()
	if err != nil {
		m.log.Error("Failed to build trade record", zap.Error(err))

		return optional.None[types.TradeRecord]()
	}

	m.last = c
	m.current = nil
	m.metrics.TradeClosed(string(reason))

	m.log.Info("Trade closed",
		zap.String("symbol", m.symbol),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", record.ExitPrice),
		zap.Float64("pnl", record.PnL),
		zap.Float64("r", record.RMultiple),
		zap.Float64("holding_hours", record.HoldingHours),
	)

	return optional.Some(record)
}

func (m *Machine) applyEntryFill(fill types.Fill) {
	c := m.current

	if qty := math.Abs(fill.Quantity); qty > 0 && qty != c.Quantity {
		m.log.Debug("Entry filled with a different quantity",
			zap.Float64("requested", c.Quantity),
			zap.Float64("filled", qty),
		)

		c.Quantity = qty
	}

	if fill.Price > 0 {
		c.EntryPrice = fill.Price
		c.MaxPrice = math.Max(c.MaxPrice, fill.Price)
	}
}

// ratchet moves the stop to candidate only if that tightens it.
func (m *Machine) ratchet(candidate float64, hint types.ExitReason) error {
	c := m.current
	if candidate <= c.CurrentStop {
		return nil
	}

	if err := m.gateway.UpdateStop(c.StopHandle, candidate); err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to move stop to %.2f", candidate)
	}

	m.log.Debug("Stop moved",
		zap.String("kind", string(hint)),
		zap.Float64("from", c.CurrentStop),
		zap.Float64("to", candidate),
	)

	c.CurrentStop = candidate
	c.ExitReasonHint = optional.Some(hint)
	m.metrics.StopUpdated(string(hint))

	return nil
}

func (m *Machine) liquidate(reason types.ExitReason) error {
	c := m.current

	if err := m.gateway.Cancel(c.StopHandle); err != nil {
		return errors.Wrap(errors.ErrCodeOrderFailed, "failed to cancel protective stop", err)
	}

	handle, err := m.gateway.SubmitMarket(m.symbol, -c.Quantity)
	if err != nil {
		return errors.Wrap(errors.ErrCodeOrderFailed, "failed to submit liquidation order", err)
	}

	c.pending = optional.Some(liquidation{handle: handle, reason: reason})

	return nil
}

// RoundStop rounds a stop price to StopPricePrecision decimals.
func RoundStop(price float64) float64 {
	f, _ := decimal.NewFromFloat(price).Round(StopPricePrecision).Float64()

	return f
}
