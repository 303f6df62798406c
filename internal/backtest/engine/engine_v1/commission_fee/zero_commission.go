package commission_fee

// ZeroCommissionFee charges nothing. Runs that study the stop logic in
// isolation use it.
type ZeroCommissionFee struct{}

func NewZeroCommissionFee() CommissionFee {
	return ZeroCommissionFee{}
}

func (ZeroCommissionFee) Calculate(float64, float64) float64 {
	return 0
}
