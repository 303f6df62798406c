package optimizer

import (
	"sort"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// RankFilters are the hard thresholds a run must pass to be ranked.
type RankFilters struct {
	MinTotalTrades  float64 `yaml:"min_total_trades" json:"min_total_trades" validate:"gte=0"`
	MinProfitFactor float64 `yaml:"min_profit_factor" json:"min_profit_factor" validate:"gte=0"`
	// MinAvgR is exclusive: avg_R must be strictly greater.
	MinAvgR float64 `yaml:"min_avg_r" json:"min_avg_r"`
}

// DefaultRankFilters returns the stock thresholds.
func DefaultRankFilters() RankFilters {
	return RankFilters{
		MinTotalTrades:  80,
		MinProfitFactor: 1.2,
		MinAvgR:         0,
	}
}

// Pass reports whether record clears every filter. Missing metrics fail.
func (f RankFilters) Pass(record types.RunRecord) bool {
	trades := record.Metric(types.MetricTotalTrades)
	pf := record.Metric(types.MetricProfitFactor)
	avgR := record.Metric(types.MetricAvgR)

	if trades.IsNone() || pf.IsNone() || avgR.IsNone() {
		return false
	}

	return trades.Unwrap() >= f.MinTotalTrades &&
		pf.Unwrap() >= f.MinProfitFactor &&
		avgR.Unwrap() > f.MinAvgR
}

// Rank filters records and sorts the survivors by descending score, ties
// broken by run id. Every record must carry a score.
func Rank(records []types.RunRecord, filters RankFilters) ([]types.RunRecord, error) {
	for _, r := range records {
		if r.Score().IsNone() {
			return nil, errors.Newf(errors.ErrCodeMissingScore, "run %s has no %s metric", r.RunID, types.MetricScore)
		}
	}

	ranked := make([]types.RunRecord, 0, len(records))

	for _, r := range records {
		if filters.Pass(r) {
			ranked = append(ranked, r)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score().Unwrap(), ranked[j].Score().Unwrap()
		if si != sj {
			return si > sj
		}

		return ranked[i].RunID < ranked[j].RunID
	})

	return ranked, nil
}

// Top returns at most n leading records.
func Top(records []types.RunRecord, n int) []types.RunRecord {
	if n < 0 || n >= len(records) {
		return records
	}

	return records[:n]
}
