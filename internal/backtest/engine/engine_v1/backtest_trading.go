package engine

import (
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/funding-breakout/internal/logger"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/internal/utils"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"go.uber.org/zap"
)

// BacktestTrading is the paper venue of a backtest. It holds a single-symbol
// cash account and fills orders against the current bar:
//   - Market orders fill immediately at the bar close.
//   - Buy orders larger than the cash allows are reduced to the affordable quantity.
//   - Sell orders larger than the position are reduced to the position.
//   - Stop orders rest until a later bar trades through the stop. A sell stop
//     fills at the lower of the bar open and the stop price; a buy stop at the higher.
//
// Fills are queued and handed out by Drain.
type BacktestTrading struct {
	symbol           string
	cash             float64
	position         float64
	averageCost      float64
	realizedPnL      float64
	totalFees        float64
	marketData       types.MarketData
	orders           map[types.OrderHandle]*types.Order
	pendingOrders    []types.OrderHandle
	fills            []types.Fill
	commission       commission_fee.CommissionFee
	decimalPrecision int
	logger           *logger.Logger
}

// NewBacktestTrading creates a paper venue holding initialBalance in cash.
func NewBacktestTrading(symbol string, initialBalance float64, commission commission_fee.CommissionFee, decimalPrecision int, log *logger.Logger) *BacktestTrading {
	return &BacktestTrading{
		symbol:           symbol,
		cash:             initialBalance,
		marketData:       types.MarketData{},
		orders:           make(map[types.OrderHandle]*types.Order),
		pendingOrders:    []types.OrderHandle{},
		commission:       commission,
		decimalPrecision: decimalPrecision,
		logger:           log,
	}
}

// UpdateMarketData advances the venue to bar and processes the resting stops.
func (b *BacktestTrading) UpdateMarketData(bar types.MarketData) {
	b.marketData = bar

	b.processPendingOrders()
}

// SubmitMarket implements trading.OrderGateway.
func (b *BacktestTrading) SubmitMarket(symbol string, quantity float64) (types.OrderHandle, error) {
	order, err := b.newOrder(symbol, types.OrderTypeMarket, quantity, 0)
	if err != nil {
		return "", err
	}

	price := b.marketData.Close
	if price <= 0 || math.IsNaN(price) {
		return "", errors.Newf(errors.ErrCodeInvalidOrder, "no market price for %s", symbol)
	}

	if err := b.execute(order, price); err != nil {
		return "", err
	}

	return order.Handle, nil
}

// SubmitStop implements trading.OrderGateway.
func (b *BacktestTrading) SubmitStop(symbol string, quantity float64, price float64) (types.OrderHandle, error) {
	order, err := b.newOrder(symbol, types.OrderTypeStop, quantity, price)
	if err != nil {
		return "", err
	}

	b.pendingOrders = append(b.pendingOrders, order.Handle)

	return order.Handle, nil
}

// UpdateStop implements trading.OrderGateway.
func (b *BacktestTrading) UpdateStop(handle types.OrderHandle, price float64) error {
	order, ok := b.orders[handle]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", handle)
	}

	if order.OrderType != types.OrderTypeStop || order.Status != types.OrderStatusPending {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order %s is not a resting stop", handle)
	}

	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return errors.Newf(errors.ErrCodeInvalidOrder, "invalid stop price %f", price)
	}

	order.StopPrice = price

	return nil
}

// Cancel implements trading.OrderGateway. Cancelling an order that already
// reached a final state is a no-op.
func (b *BacktestTrading) Cancel(handle types.OrderHandle) error {
	order, ok := b.orders[handle]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", handle)
	}

	if order.Status != types.OrderStatusPending {
		return nil
	}

	order.Status = types.OrderStatusCancelled
	b.removePending(handle)

	return nil
}

// GetAccountInfo implements trading.AccountReader.
func (b *BacktestTrading) GetAccountInfo() types.AccountInfo {
	return types.AccountInfo{
		Cash:             b.cash,
		Equity:           b.equity(),
		PositionQuantity: b.position,
		RealizedPnL:      b.realizedPnL,
		TotalFees:        b.totalFees,
	}
}

// GetBuyingPower returns the largest quantity affordable at the current close.
func (b *BacktestTrading) GetBuyingPower() float64 {
	maxQty := utils.MaxAffordableQuantity(b.cash, b.marketData.Close, b.commission)

	return utils.TruncateQuantity(maxQty, b.decimalPrecision)
}

// GetOrder returns the order behind handle.
func (b *BacktestTrading) GetOrder(handle types.OrderHandle) optional.Option[types.Order] {
	order, ok := b.orders[handle]
	if !ok {
		return optional.None[types.Order]()
	}

	return optional.Some(*order)
}

// Drain returns the fills queued since the previous call.
func (b *BacktestTrading) Drain() []types.Fill {
	fills := b.fills
	b.fills = nil

	return fills
}

func (b *BacktestTrading) equity() float64 {
	if b.position == 0 {
		return b.cash
	}

	return b.cash + b.position*b.marketData.Close
}

func (b *BacktestTrading) newOrder(symbol string, orderType types.OrderType, quantity float64, stopPrice float64) (*types.Order, error) {
	if symbol != b.symbol {
		return nil, errors.Newf(errors.ErrCodeInvalidOrder, "venue trades %s, got order for %s", b.symbol, symbol)
	}

	order := &types.Order{
		Handle:    types.OrderHandle(uuid.New().String()),
		Symbol:    symbol,
		Side:      types.SideOf(quantity),
		OrderType: orderType,
		Quantity:  quantity,
		StopPrice: stopPrice,
		Status:    types.OrderStatusPending,
		CreatedAt: b.marketData.Time,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	b.orders[order.Handle] = order

	return order, nil
}

func (b *BacktestTrading) removePending(handle types.OrderHandle) {
	if i := slices.Index(b.pendingOrders, handle); i >= 0 {
		b.pendingOrders = slices.Delete(b.pendingOrders, i, i+1)
	}
}

// processPendingOrders fills every resting stop the current bar trades through.
func (b *BacktestTrading) processPendingOrders() {
	if len(b.pendingOrders) == 0 {
		return
	}

	var remaining []types.OrderHandle

	var triggered []*types.Order

	for _, handle := range b.pendingOrders {
		order := b.orders[handle]

		switch {
		case order.Side == types.PurchaseTypeSell && b.marketData.Low <= order.StopPrice:
			triggered = append(triggered, order)
		case order.Side == types.PurchaseTypeBuy && b.marketData.High >= order.StopPrice:
			triggered = append(triggered, order)
		default:
			remaining = append(remaining, handle)
		}
	}

	b.pendingOrders = remaining

	for _, order := range triggered {
		price := math.Min(b.marketData.Open, order.StopPrice)
		if order.Side == types.PurchaseTypeBuy {
			price = math.Max(b.marketData.Open, order.StopPrice)
		}

		// a stop that cannot fill is rejected; the rest still execute
		if err := b.execute(order, price); err != nil {
			b.logger.Debug("Stop order rejected",
				zap.String("handle", string(order.Handle)),
				zap.Error(err),
			)
		}
	}
}

// execute fills order at price, adjusting the quantity to what the account
// can support. A rejected order emits a REJECTED fill event.
func (b *BacktestTrading) execute(order *types.Order, price float64) error {
	quantity := utils.TruncateQuantity(math.Abs(order.Quantity), b.decimalPrecision)

	if order.Side == types.PurchaseTypeBuy {
		fee := b.commission.Calculate(quantity, price)
		if quantity*price+fee > b.cash {
			quantity = utils.TruncateQuantity(utils.MaxAffordableQuantity(b.cash, price, b.commission), b.decimalPrecision)
		}
	} else if quantity > b.position {
		quantity = b.position
	}

	if quantity <= 0 {
		b.reject(order)

		if order.Side == types.PurchaseTypeBuy {
			return errors.Newf(errors.ErrCodeInsufficientBP, "insufficient cash %.2f for order %s", b.cash, order.Handle)
		}

		return errors.Newf(errors.ErrCodeInvalidOrder, "no position to sell for order %s", order.Handle)
	}

	fee := b.commission.Calculate(quantity, price)

	if order.Side == types.PurchaseTypeBuy {
		b.averageCost = (b.averageCost*b.position + quantity*price) / (b.position + quantity)
		b.position += quantity
		b.cash -= quantity*price + fee
	} else {
		b.realizedPnL += quantity * (price - b.averageCost)
		b.position = utils.TruncateQuantity(b.position-quantity, b.decimalPrecision)
		b.cash += quantity*price - fee

		if b.position <= 0 {
			b.position = 0
			b.averageCost = 0
		}
	}

	b.totalFees += fee
	order.Status = types.OrderStatusFilled

	signed := quantity
	if order.Side == types.PurchaseTypeSell {
		signed = -quantity
	}

	b.fills = append(b.fills, types.Fill{
		OrderID:  order.Handle,
		Status:   types.OrderStatusFilled,
		Price:    price,
		Quantity: signed,
		Fee:      fee,
		Time:     b.marketData.Time,
	})

	return nil
}

func (b *BacktestTrading) reject(order *types.Order) {
	order.Status = types.OrderStatusRejected

	b.fills = append(b.fills, types.Fill{
		OrderID: order.Handle,
		Status:  types.OrderStatusRejected,
		Time:    b.marketData.Time,
	})
}
