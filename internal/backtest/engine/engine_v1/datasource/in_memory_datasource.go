package datasource

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

var errResampleUnsupported = errors.New(errors.ErrCodeInvalidConfiguration, "in-memory data source does not resample")

// InMemoryDataSource serves pre-loaded series. Used by tests and by callers
// that generate data on the fly.
type InMemoryDataSource struct {
	bars    []types.MarketData
	funding []types.FundingSample
}

// NewInMemoryDataSource copies and sorts the given series.
func NewInMemoryDataSource(bars []types.MarketData, funding []types.FundingSample) *InMemoryDataSource {
	b := make([]types.MarketData, len(bars))
	copy(b, bars)
	sort.SliceStable(b, func(i, j int) bool { return b[i].Time.Before(b[j].Time) })

	f := make([]types.FundingSample, len(funding))
	copy(f, funding)
	sort.SliceStable(f, func(i, j int) bool { return f[i].Time.Before(f[j].Time) })

	return &InMemoryDataSource{bars: b, funding: f}
}

// Initialize is a no-op; the data was supplied at construction.
func (m *InMemoryDataSource) Initialize(_ string, _ string) error {
	return nil
}

func within(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && t.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && t.After(end.Unwrap()) {
		return false
	}

	return true
}

// Bars implements DataSource. Resampling is not supported; an interval
// yields an error.
func (m *InMemoryDataSource) Bars(start optional.Option[time.Time], end optional.Option[time.Time], interval optional.Option[Interval]) func(yield func(types.MarketData, error) bool) {
	return func(yield func(types.MarketData, error) bool) {
		if interval.IsSome() {
			_, err := getIntervalMinutes(interval.Unwrap())
			if err == nil {
				err = errResampleUnsupported
			}

			yield(types.MarketData{}, err)

			return
		}

		for _, bar := range m.bars {
			if !within(bar.Time, start, end) {
				continue
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Funding implements DataSource.
func (m *InMemoryDataSource) Funding(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.FundingSample, error) bool) {
	return func(yield func(types.FundingSample, error) bool) {
		for _, sample := range m.funding {
			if !within(sample.Time, start, end) {
				continue
			}

			if !yield(sample, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (m *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, bar := range m.bars {
		if within(bar.Time, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (m *InMemoryDataSource) Close() error {
	return nil
}
