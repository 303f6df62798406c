// Package strategy implements the long-only Donchian breakout with a funding
// regime overlay. It turns bars and funding samples into entries and stop
// management calls on a trade.Machine.
package strategy

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/indicator"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/regime"
	"github.com/rxtech-lab/funding-breakout/internal/risk"
	"github.com/rxtech-lab/funding-breakout/internal/trade"
	"github.com/rxtech-lab/funding-breakout/internal/trading"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
)

// Name is the strategy identifier used in logs and results.
const Name = "donchian_funding"

// Indicator registry keys.
const (
	KeyEntryChannel = "dc_entry"
	KeyExitChannel  = "dc_exit"
	KeyTrendEMA     = "ema_trend"
	KeyExitEMA      = "ema_exit"
	KeyATR          = "atr"
)

// Strategy is the per-run decision pipeline. It is owned by one run and is
// not safe for concurrent use.
type Strategy struct {
	symbol  string
	params  Params
	account trading.AccountReader
	log     *logger.Logger

	estimator *regime.Estimator
	selector  *regime.Selector
	sizer     *risk.Sizer
	machine   *trade.Machine

	indicators *indicator.Registry
	entryDC    *indicator.Donchian
	exitDC     *indicator.Donchian
	trendEMA   *indicator.EMA
	exitEMA    *indicator.EMA
	atr        *indicator.ATR
	atrSMA     *indicator.SMA

	lastFunding optional.Option[float64]
	current     types.RegimeSnapshot
	bars        int
}

// New wires a strategy for symbol. Orders go to gateway; account supplies the
// portfolio value used for sizing.
func New(symbol string, params Params, gateway trading.OrderGateway, account trading.AccountReader, log *logger.Logger, opts ...trade.Option) (*Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	table := params.ProfileTable()
	if err := table.Validate(); err != nil {
		return nil, err
	}

	s := &Strategy{
		symbol:     symbol,
		params:     params,
		account:    account,
		log:        log,
		estimator:  regime.NewEstimator(params.FundingWindow, params.FundingMinSamples),
		selector:   regime.NewSelector(table),
		sizer:      risk.NewSizer(),
		machine:    trade.NewMachine(symbol, gateway, params.Policy(), log, opts...),
		indicators: indicator.NewRegistry(),
	}

	if err := s.buildIndicators(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Strategy) buildIndicators() error {
	var err error

	if s.entryDC, err = indicator.NewDonchian(s.params.EntryChannel); err != nil {
		return err
	}

	if s.exitDC, err = indicator.NewDonchian(s.params.ExitChannel); err != nil {
		return err
	}

	if s.trendEMA, err = indicator.NewEMA(s.params.TrendEMA); err != nil {
		return err
	}

	if s.exitEMA, err = indicator.NewEMA(s.params.ExitEMA); err != nil {
		return err
	}

	if s.atr, err = indicator.NewATR(s.params.ATRPeriod); err != nil {
		return err
	}

	// fed ATR values rather than bars, so it stays out of the registry
	if s.atrSMA, err = indicator.NewSMA(s.params.ATRSMAPeriod); err != nil {
		return err
	}

	for _, entry := range []struct {
		key string
		ind indicator.Indicator
	}{
		{KeyEntryChannel, s.entryDC},
		{KeyExitChannel, s.exitDC},
		{KeyTrendEMA, s.trendEMA},
		{KeyExitEMA, s.exitEMA},
		{KeyATR, s.atr},
	} {
		if err := s.indicators.Register(entry.key, entry.ind); err != nil {
			return err
		}
	}

	return nil
}

// Name returns the strategy identifier.
func (s *Strategy) Name() string {
	return Name
}

// Params returns the configuration the strategy runs with.
func (s *Strategy) Params() Params {
	return s.params
}

// Machine exposes the trade lifecycle, mainly for fills and inspection.
func (s *Strategy) Machine() *trade.Machine {
	return s.machine
}

// Regime returns the snapshot computed on the last bar.
func (s *Strategy) Regime() types.RegimeSnapshot {
	return s.current
}

// OnFunding records a funding observation. Unusable samples are dropped.
func (s *Strategy) OnFunding(sample types.FundingSample) {
	if !sample.IsUsable() {
		return
	}

	s.estimator.Update(sample.Value)
	s.lastFunding = optional.Some(sample.Value)
}

// OnBar runs one tick of the pipeline. Funding samples stamped at or before
// the bar must have been passed to OnFunding first.
func (s *Strategy) OnBar(bar types.MarketData) error {
	if !bar.IsUsable() {
		s.log.Debug("Skipping unusable bar", zap.Time("time", bar.Time), zap.Float64("close", bar.Close))

		return nil
	}

	// channel levels for this bar come from the bars before it
	entryReady := s.entryDC.Ready()
	entryChannel := s.entryDC.Channel()
	exitReady := s.exitDC.Ready()
	exitChannel := s.exitDC.Channel()

	s.indicators.UpdateAll(bar)

	if s.atr.Ready() {
		s.atrSMA.UpdateValue(s.atr.Value())
	}

	s.current = s.selector.Select(s.estimator.ZScore())

	s.bars++
	if s.bars <= s.params.Warmup {
		return nil
	}

	if s.machine.Current().IsSome() {
		tick := trade.TickInput{
			Time:  bar.Time,
			Close: bar.Close,
			ATR:   s.atr.Value(),
		}

		if s.exitEMA.Ready() {
			tick.TrendMA = s.exitEMA.Value()
		}

		if exitReady {
			tick.ChannelFloor = exitChannel.Lower
		}

		return s.machine.OnTick(tick)
	}

	if !entryReady || !s.entrySignal(bar, entryChannel) {
		return nil
	}

	return s.enter(bar)
}

func (s *Strategy) entrySignal(bar types.MarketData, channel indicator.Channel) bool {
	if !s.indicators.Ready() || !s.atrSMA.Ready() {
		return false
	}

	funding, err := s.lastFunding.Take()
	if err != nil {
		return false
	}

	return s.atr.Value() > s.atrSMA.Value() &&
		funding <= s.params.FundingLongMax &&
		bar.Close > channel.Upper &&
		bar.Close > s.trendEMA.Value()
}

func (s *Strategy) enter(bar types.MarketData) error {
	atr := s.atr.Value()
	info := s.account.GetAccountInfo()

	qty := s.sizer.Size(risk.SizeInput{
		ATR:            atr,
		PortfolioValue: info.Equity,
		Price:          bar.Close,
		RiskMultiplier: s.current.RiskMultiplier,
		StopMultiplier: s.current.StopMultiplier,
		Budget:         s.params.Budget(),
	})
	if qty <= 0 {
		s.log.Debug("Entry signal sized to zero", zap.Time("time", bar.Time), zap.Float64("atr", atr))

		return nil
	}

	features := trade.EntryFeatures(trade.FeatureInput{
		Time:        bar.Time,
		Funding:     s.lastFunding.TakeOr(0),
		Regime:      s.current,
		Selector:    s.selector,
		ATR:         atr,
		ATRBaseline: s.atrSMA.Value(),
	})

	_, err := s.machine.Open(trade.EntryInput{
		Time:     bar.Time,
		Price:    bar.Close,
		ATR:      atr,
		Quantity: qty,
		Regime:   s.current,
		Features: features,
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to open trade at %s", bar.Time.Format(time.RFC3339))
	}

	return nil
}

// OnFill forwards a venue fill to the trade machine.
func (s *Strategy) OnFill(fill types.Fill) optional.Option[types.TradeRecord] {
	return s.machine.OnFill(fill)
}

// Finish liquidates any open trade at the end of data.
func (s *Strategy) Finish() error {
	return s.machine.ForceClose()
}
