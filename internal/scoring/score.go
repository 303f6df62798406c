// Package scoring reduces a run's summary statistics to one fitness value.
package scoring

import (
	"math"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/shopspring/decimal"
)

const (
	// Disqualified is the score of runs excluded from ranking.
	Disqualified = -999.0
	// MinTrades is the trade count below which a run is disqualified.
	MinTrades = 30
	// MaxDrawdown is the absolute drawdown above which a run is disqualified.
	MaxDrawdown = 0.35
	// Precision is the number of decimals kept on scores.
	Precision = 3
)

// Term is one weighted, normalized component of the score.
type Term struct {
	Metric string
	Weight float64
	Scale  float64
	Min    float64
	Max    float64
	// Offset is subtracted from the metric before scaling.
	Offset float64
}

func (t Term) contribution(v float64) float64 {
	return t.Weight * Normalize(v-t.Offset, t.Scale, t.Min, t.Max)
}

// Terms are the rewarded components.
var Terms = []Term{
	{Metric: types.MetricCalmar, Weight: 2.0, Scale: 2.0, Min: 0, Max: 1.5},
	{Metric: types.MetricCAGR, Weight: 1.5, Scale: 0.30, Min: 0, Max: 1.5},
	{Metric: types.MetricSharpe, Weight: 1.2, Scale: 2.0, Min: 0, Max: 1.2},
	{Metric: types.MetricProfitFactor, Weight: 1.0, Scale: 1.0, Min: 0, Max: 1.5, Offset: 1},
	{Metric: types.MetricExpectancy, Weight: 1.5, Scale: 0.5, Min: -1, Max: 1.5},
}

// Penalties are subtracted from the rewarded components.
var Penalties = []Term{
	{Metric: types.MetricMaxDrawdownPct, Weight: 2.5, Scale: 0.25, Min: 0, Max: 2.0},
	{Metric: types.MetricAvgHoldingHours, Weight: 0.5, Scale: 240, Min: 0, Max: 1.0},
}

// Normalize clamps v/scale into [lo, hi]. A non-positive scale yields lo.
func Normalize(v, scale, lo, hi float64) float64 {
	if scale <= 0 || math.IsNaN(v) {
		return lo
	}

	return math.Max(lo, math.Min(hi, v/scale))
}

// Score computes the fitness of a run. Missing metrics count as 0, except a
// missing drawdown which counts as 1 and therefore disqualifies.
func Score(record types.RunRecord) float64 {
	trades := record.Metric(types.MetricTotalTrades).TakeOr(0)
	drawdown := math.Abs(record.Metric(types.MetricMaxDrawdownPct).TakeOr(1))

	if trades < MinTrades || drawdown > MaxDrawdown {
		return Disqualified
	}

	var score float64

	for _, t := range Terms {
		score += t.contribution(record.Metric(t.Metric).TakeOr(0))
	}

	for _, p := range Penalties {
		v := record.Metric(p.Metric).TakeOr(0)
		if p.Metric == types.MetricMaxDrawdownPct {
			v = drawdown
		}

		score -= p.contribution(v)
	}

	f, _ := decimal.NewFromFloat(score).Round(Precision).Float64()

	return f
}

// Apply stores the score on the record and returns it.
func Apply(record types.RunRecord) types.RunRecord {
	if record.Metrics == nil {
		record.Metrics = map[string]float64{}
	}

	record.Metrics[types.MetricScore] = Score(record)

	return record
}
