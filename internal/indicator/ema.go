package indicator

import (
	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// EMA is an exponential moving average of closes, seeded with the SMA of the
// first period closes and smoothed with alpha = 2/(period+1) afterwards.
type EMA struct {
	period int
	alpha  float64
	count  int
	seed   float64
	value  float64
}

// NewEMA creates an exponential moving average.
func NewEMA(period int) (*EMA, error) {
	if err := validatePeriod(IndicatorTypeEMA, period); err != nil {
		return nil, err
	}

	return &EMA{period: period, alpha: 2.0 / float64(period+1)}, nil
}

func (e *EMA) Name() IndicatorType {
	return IndicatorTypeEMA
}

func (e *EMA) Period() int {
	return e.period
}

func (e *EMA) Update(bar types.MarketData) {
	e.count++

	if e.count <= e.period {
		e.seed += bar.Close
		e.value = e.seed / float64(e.count)

		return
	}

	e.value = e.alpha*bar.Close + (1-e.alpha)*e.value
}

func (e *EMA) Value() float64 {
	return e.value
}

func (e *EMA) Ready() bool {
	return e.count >= e.period
}
