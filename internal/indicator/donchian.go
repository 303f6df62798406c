package indicator

import (
	"math"

	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// Channel is a Donchian channel reading.
type Channel struct {
	Upper float64
	Lower float64
}

// Middle returns the channel midpoint.
func (c Channel) Middle() float64 {
	return (c.Upper + c.Lower) / 2
}

// Donchian tracks the highest high and lowest low of the last period bars.
type Donchian struct {
	period int
	highs  *window
	lows   *window
}

// NewDonchian creates a Donchian channel over period bars.
func NewDonchian(period int) (*Donchian, error) {
	if err := validatePeriod(IndicatorTypeDonchian, period); err != nil {
		return nil, err
	}

	return &Donchian{period: period, highs: newWindow(period), lows: newWindow(period)}, nil
}

func (d *Donchian) Name() IndicatorType {
	return IndicatorTypeDonchian
}

func (d *Donchian) Period() int {
	return d.period
}

func (d *Donchian) Update(bar types.MarketData) {
	d.highs.push(bar.High)
	d.lows.push(bar.Low)
}

// Channel returns the levels over the bars seen so far.
func (d *Donchian) Channel() Channel {
	if d.highs.size == 0 {
		return Channel{}
	}

	c := Channel{Upper: math.Inf(-1), Lower: math.Inf(1)}
	d.highs.each(func(v float64) { c.Upper = math.Max(c.Upper, v) })
	d.lows.each(func(v float64) { c.Lower = math.Min(c.Lower, v) })

	return c
}

// Value returns the channel midpoint.
func (d *Donchian) Value() float64 {
	return d.Channel().Middle()
}

func (d *Donchian) Ready() bool {
	return d.highs.full()
}
