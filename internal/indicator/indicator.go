// Package indicator provides streaming technical indicators that are updated
// one bar at a time and read without looking ahead.
package indicator

import (
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// IndicatorType names an indicator family.
type IndicatorType string

const (
	IndicatorTypeSMA      IndicatorType = "sma"
	IndicatorTypeEMA      IndicatorType = "ema"
	IndicatorTypeATR      IndicatorType = "atr"
	IndicatorTypeDonchian IndicatorType = "donchian"
)

// Indicator is a bar-driven streaming indicator.
type Indicator interface {
	// Name returns the indicator family.
	Name() IndicatorType
	// Update feeds one bar.
	Update(bar types.MarketData)
	// Value returns the latest value. Meaningless until Ready.
	Value() float64
	// Ready reports whether enough bars have been seen.
	Ready() bool
	// Period returns the lookback length.
	Period() int
}

func validatePeriod(name IndicatorType, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

// window is a fixed-size ring of the most recent values.
type window struct {
	values []float64
	head   int
	size   int
}

func newWindow(capacity int) *window {
	return &window{values: make([]float64, capacity)}
}

// push adds v and returns the evicted value, if any.
func (w *window) push(v float64) (float64, bool) {
	if w.size < len(w.values) {
		w.values[(w.head+w.size)%len(w.values)] = v
		w.size++

		return 0, false
	}

	old := w.values[w.head]
	w.values[w.head] = v
	w.head = (w.head + 1) % len(w.values)

	return old, true
}

func (w *window) full() bool {
	return w.size == len(w.values)
}

func (w *window) each(fn func(float64)) {
	for i := 0; i < w.size; i++ {
		fn(w.values[(w.head+i)%len(w.values)])
	}
}
