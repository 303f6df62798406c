package indicator

import (
	"math"

	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// ATR is the average true range using a simple moving average of true ranges.
type ATR struct {
	period    int
	tr        *SMA
	prevClose float64
	seen      bool
}

// NewATR creates an ATR over period bars.
func NewATR(period int) (*ATR, error) {
	if err := validatePeriod(IndicatorTypeATR, period); err != nil {
		return nil, err
	}

	tr, err := NewSMA(period)
	if err != nil {
		return nil, err
	}

	return &ATR{period: period, tr: tr}, nil
}

func (a *ATR) Name() IndicatorType {
	return IndicatorTypeATR
}

func (a *ATR) Period() int {
	return a.period
}

func (a *ATR) Update(bar types.MarketData) {
	a.tr.UpdateValue(TrueRange(bar, a.prevClose, a.seen))
	a.prevClose = bar.Close
	a.seen = true
}

func (a *ATR) Value() float64 {
	return a.tr.Value()
}

func (a *ATR) Ready() bool {
	return a.tr.Ready()
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|), or high-low
// for the first bar.
func TrueRange(bar types.MarketData, prevClose float64, hasPrev bool) float64 {
	r := bar.High - bar.Low
	if !hasPrev {
		return r
	}

	return math.Max(r, math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
}
