package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/types"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

var AllIntervals = []Interval{
	Interval1m, Interval5m, Interval15m, Interval30m,
	Interval1h, Interval4h, Interval6h, Interval8h, Interval12h,
	Interval1d, Interval1w,
}

// DataSource supplies the two time series a run consumes: price bars and
// funding-rate samples, each ordered by time ascending.
type DataSource interface {
	// Initialize loads bars and funding samples from files. Parquet and CSV are supported.
	Initialize(barsPath string, fundingPath string) error
	// Bars yields bars within the optional bounds, optionally resampled to interval.
	Bars(start optional.Option[time.Time], end optional.Option[time.Time], interval optional.Option[Interval]) func(yield func(types.MarketData, error) bool)
	// Funding yields funding samples within the optional bounds.
	Funding(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.FundingSample, error) bool)
	// Count returns the number of raw bars within the bounds.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close closes the data source and releases any resources
	Close() error
}
