package commission_fee

import "math"

// PercentageCommissionFee charges a fixed fraction of the traded notional.
type PercentageCommissionFee struct {
	rate float64
}

// NewPercentageCommissionFee creates a fee model charging rate * |quantity| * price.
// A non-positive rate falls back to DefaultFeePercent.
func NewPercentageCommissionFee(rate float64) CommissionFee {
	if rate <= 0 {
		rate = DefaultFeePercent
	}

	return &PercentageCommissionFee{rate: rate}
}

func (c *PercentageCommissionFee) Calculate(quantity float64, price float64) float64 {
	return math.Abs(quantity) * price * c.rate
}
