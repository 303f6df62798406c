package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

type PurchaseType string

type OrderType string

type OrderStatus string

// OrderHandle is an opaque reference to an order held by the venue.
type OrderHandle string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeStop   OrderType = "STOP"
)

// SideOf maps a signed quantity to its order side.
func SideOf(quantity float64) PurchaseType {
	if quantity < 0 {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

// Order is a venue-side order. Quantity is signed: negative sells.
type Order struct {
	Handle    OrderHandle  `yaml:"handle" json:"handle" csv:"handle" validate:"required"`
	Symbol    string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Side      PurchaseType `yaml:"side" json:"side" csv:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType    `yaml:"order_type" json:"order_type" csv:"order_type" validate:"required,oneof=MARKET STOP"`
	Quantity  float64      `yaml:"quantity" json:"quantity" csv:"quantity" validate:"required,ne=0"`
	// StopPrice is only meaningful for STOP orders.
	StopPrice float64     `yaml:"stop_price" json:"stop_price" csv:"stop_price" validate:"gte=0"`
	Status    OrderStatus `yaml:"status" json:"status" csv:"status"`
	CreatedAt time.Time   `yaml:"created_at" json:"created_at" csv:"created_at"`
}

// Validate validates the order fields.
func (o *Order) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.OrderType == OrderTypeStop && o.StopPrice <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "stop order %s requires a positive stop price", o.Handle)
	}

	return nil
}

// Fill is an execution event reported by the venue.
type Fill struct {
	OrderID  OrderHandle `yaml:"order_id" json:"order_id" csv:"order_id"`
	Status   OrderStatus `yaml:"status" json:"status" csv:"status"`
	Price    float64     `yaml:"price" json:"price" csv:"price"`
	Quantity float64     `yaml:"quantity" json:"quantity" csv:"quantity"`
	Fee      float64     `yaml:"fee" json:"fee" csv:"fee"`
	Time     time.Time   `yaml:"time" json:"time" csv:"time"`
}

// IsFilled reports whether the event is a completed fill.
func (f Fill) IsFilled() bool {
	return f.Status == OrderStatusFilled
}
