// Package risk converts a risk budget into an order quantity.
package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// MaxNotionalFraction caps the capital committed to a single position.
	MaxNotionalFraction = 0.95
	// QuantityPrecision is the number of decimals kept on sized quantities.
	QuantityPrecision = 4
)

// Budget holds the per-run risk fractions of portfolio value.
type Budget struct {
	BaseRiskFrac float64 `yaml:"base_risk_frac" json:"base_risk_frac" validate:"gt=0,lte=1"`
	MinRiskFrac  float64 `yaml:"min_risk_frac" json:"min_risk_frac" validate:"gte=0,lte=1"`
	MaxRiskFrac  float64 `yaml:"max_risk_frac" json:"max_risk_frac" validate:"gt=0,lte=1,gtefield=MinRiskFrac"`
}

// DefaultBudget risks 1% per trade, bounded to [0.25%, 2%].
func DefaultBudget() Budget {
	return Budget{
		BaseRiskFrac: 0.01,
		MinRiskFrac:  0.0025,
		MaxRiskFrac:  0.02,
	}
}

// SizeInput is everything the sizer needs for one entry.
type SizeInput struct {
	ATR            float64
	PortfolioValue float64
	Price          float64
	RiskMultiplier float64
	StopMultiplier float64
	Budget         Budget
}

// Sizer computes entry quantities.
type Sizer struct{}

// NewSizer returns a sizer.
func NewSizer() *Sizer {
	return &Sizer{}
}

// Size returns the quantity to buy. Zero means no trade.
func (s *Sizer) Size(in SizeInput) float64 {
	if !positive(in.ATR) || !positive(in.Price) || !positive(in.PortfolioValue) || !positive(in.StopMultiplier) {
		return 0
	}

	pv := in.PortfolioValue
	adjusted := pv * in.Budget.BaseRiskFrac * in.RiskMultiplier
	adjusted = math.Max(adjusted, pv*in.Budget.MinRiskFrac)
	adjusted = math.Min(adjusted, pv*in.Budget.MaxRiskFrac)

	byRisk := adjusted / (in.ATR * in.StopMultiplier)
	notionalCap := pv * MaxNotionalFraction
	byNotional := notionalCap / in.Price

	qty := math.Min(byRisk, byNotional)
	if !positive(qty) {
		return 0
	}

	return roundQuantity(qty, in.Price, notionalCap)
}

// roundQuantity rounds to QuantityPrecision, falling back to truncation when
// rounding up would breach the notional cap.
func roundQuantity(qty, price, notionalCap float64) float64 {
	d := decimal.NewFromFloat(qty)
	rounded := d.Round(QuantityPrecision)

	if rounded.Mul(decimal.NewFromFloat(price)).GreaterThan(decimal.NewFromFloat(notionalCap)) {
		rounded = d.Truncate(QuantityPrecision)
	}

	f, _ := rounded.Float64()

	return math.Max(f, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
