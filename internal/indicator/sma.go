package indicator

import (
	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// SMA is a simple moving average. It can be fed bars (close) or raw values.
type SMA struct {
	period int
	win    *window
	sum    float64
}

// NewSMA creates a simple moving average over period values.
func NewSMA(period int) (*SMA, error) {
	if err := validatePeriod(IndicatorTypeSMA, period); err != nil {
		return nil, err
	}

	return &SMA{period: period, win: newWindow(period)}, nil
}

func (s *SMA) Name() IndicatorType {
	return IndicatorTypeSMA
}

func (s *SMA) Period() int {
	return s.period
}

// Update feeds the bar close.
func (s *SMA) Update(bar types.MarketData) {
	s.UpdateValue(bar.Close)
}

// UpdateValue feeds one raw value.
func (s *SMA) UpdateValue(v float64) {
	if old, evicted := s.win.push(v); evicted {
		s.sum -= old
	}

	s.sum += v
}

func (s *SMA) Value() float64 {
	if s.win.size == 0 {
		return 0
	}

	return s.sum / float64(s.win.size)
}

func (s *SMA) Ready() bool {
	return s.win.full()
}
