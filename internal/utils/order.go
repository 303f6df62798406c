package utils

import (
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/shopspring/decimal"
)

// maxRefinements bounds the shrinking steps for fee models that are not
// linear in quantity.
const maxRefinements = 10

// MaxAffordableQuantity returns the largest quantity whose cost at price,
// fee included, fits in cash.
func MaxAffordableQuantity(cash float64, price float64, fee commission_fee.CommissionFee) float64 {
	if price <= 0 || cash <= 0 {
		return 0
	}

	qty := cash / (price + fee.Calculate(1, price))

	for range maxRefinements {
		total := qty*price + fee.Calculate(qty, price)
		if total <= cash {
			break
		}

		qty *= cash / total
	}

	return qty
}

// TruncateQuantity cuts quantity to precision decimals, toward zero.
func TruncateQuantity(quantity float64, precision int) float64 {
	f, _ := decimal.NewFromFloat(quantity).Truncate(int32(precision)).Float64()

	return f
}
