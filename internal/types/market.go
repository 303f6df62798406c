package types

import (
	"math"
	"time"
)

// MarketData is one OHLCV bar.
type MarketData struct {
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// IsUsable reports whether the bar carries prices the engine can act on.
// Bars failing this check are data defects and are skipped.
func (m MarketData) IsUsable() bool {
	for _, v := range []float64{m.Open, m.High, m.Low, m.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}

	return m.High >= m.Low && !m.Time.IsZero()
}

// FundingSample is one perpetual funding-rate observation.
type FundingSample struct {
	Time  time.Time `yaml:"time" json:"time" csv:"time"`
	Value float64   `yaml:"value" json:"value" csv:"value"`
}

// IsUsable reports whether the sample is a finite number with a timestamp.
func (f FundingSample) IsUsable() bool {
	return !f.Time.IsZero() && !math.IsNaN(f.Value) && !math.IsInf(f.Value, 0)
}
