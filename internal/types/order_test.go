package types

import (
	"testing"
	"time"

	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestOrderValidate(t *testing.T) {
	base := Order{
		Handle:    "h-1",
		Symbol:    "BTCUSDT",
		Side:      PurchaseTypeSell,
		OrderType: OrderTypeStop,
		Quantity:  -0.5,
		StopPrice: 95,
		Status:    OrderStatusPending,
		CreatedAt: time.Now(),
	}

	assert.NoError(t, base.Validate())

	noStop := base
	noStop.StopPrice = 0
	assert.True(t, errors.HasCode(noStop.Validate(), errors.ErrCodeInvalidOrder))

	zeroQty := base
	zeroQty.Quantity = 0
	assert.True(t, errors.HasCode(zeroQty.Validate(), errors.ErrCodeInvalidOrder))

	market := base
	market.OrderType = OrderTypeMarket
	market.StopPrice = 0
	assert.NoError(t, market.Validate())
}

func TestSideOf(t *testing.T) {
	assert.Equal(t, PurchaseTypeBuy, SideOf(1.2))
	assert.Equal(t, PurchaseTypeSell, SideOf(-1.2))
}

func TestFillIsFilled(t *testing.T) {
	assert.True(t, Fill{Status: OrderStatusFilled}.IsFilled())
	assert.False(t, Fill{Status: OrderStatusCancelled}.IsFilled())
}
