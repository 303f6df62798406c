package types

import "time"

// AccountInfo is the paper account state at a point in time.
type AccountInfo struct {
	// Cash excludes the market value of the open position.
	Cash float64 `json:"cash" yaml:"cash"`
	// Equity is cash plus the open position marked at the last close.
	Equity float64   `json:"equity" yaml:"equity"`
	// PositionQuantity is signed; zero when flat.
	PositionQuantity float64 `json:"position_quantity" yaml:"position_quantity"`
	RealizedPnL      float64 `json:"realized_pnl" yaml:"realized_pnl"`
	TotalFees        float64 `json:"total_fees" yaml:"total_fees"`
}

// EquityPoint is one sample of the equity curve.
type EquityPoint struct {
	Time   time.Time `json:"time" yaml:"time"`
	Equity float64   `json:"equity" yaml:"equity"`
}
