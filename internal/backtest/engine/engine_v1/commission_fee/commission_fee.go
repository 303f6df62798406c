package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for a fill of quantity at price, in quote currency.
	// The sign of quantity is ignored.
	Calculate(quantity float64, price float64) float64
}

type Broker string

const (
	BrokerPercentage Broker = "percentage"
	BrokerZero       Broker = "zero_commission"
)

// DefaultFeePercent is the taker fee applied when none is configured.
const DefaultFeePercent = 0.001

var AllBrokers = []any{
	BrokerPercentage,
	BrokerZero,
}

// GetCommissionFeeHandler returns the fee model for broker. feePercent is a
// fraction of notional and is only used by BrokerPercentage.
func GetCommissionFeeHandler(broker Broker, feePercent float64) CommissionFee {
	switch broker {
	case BrokerPercentage:
		return NewPercentageCommissionFee(feePercent)
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
