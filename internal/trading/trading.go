package trading

import "github.com/rxtech-lab/funding-breakout/internal/types"

// OrderGateway is the order capability handed to the trade machine. Handles
// are opaque; fills flow back separately as types.Fill events.
type OrderGateway interface {
	// SubmitMarket places a market order. Negative quantity sells.
	SubmitMarket(symbol string, quantity float64) (types.OrderHandle, error)
	// SubmitStop places a stop order that triggers at price. Negative quantity sells.
	SubmitStop(symbol string, quantity float64, price float64) (types.OrderHandle, error)
	// UpdateStop moves a resting stop order to a new trigger price.
	UpdateStop(handle types.OrderHandle, price float64) error
	// Cancel cancels a resting order.
	Cancel(handle types.OrderHandle) error
}

// AccountReader exposes the account state the strategy sizes against.
type AccountReader interface {
	// GetAccountInfo returns the current account state.
	GetAccountInfo() types.AccountInfo
}
