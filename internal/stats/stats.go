// Package stats reduces a finished run to its summary metrics.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"gonum.org/v1/gonum/stat"
)

const (
	// PeriodsPerYear annualizes daily returns. Crypto trades every day.
	PeriodsPerYear = 365
	// MaxProfitFactor caps the profit factor of runs without a losing trade.
	MaxProfitFactor = 100

	daysPerYear = 365.25
)

// Input is everything a run hands over for summarizing.
type Input struct {
	Trades         []types.TradeRecord
	Equity         []types.EquityPoint
	InitialCapital float64
	TotalFees      float64
}

// Summarize computes the metric map stored on a RunRecord. The score is not
// included; it is derived from these metrics separately.
func Summarize(in Input) map[string]float64 {
	final := in.InitialCapital
	if n := len(in.Equity); n > 0 {
		final = in.Equity[n-1].Equity
	}

	dd := MaxDrawdown(in.Equity)
	cagr := CAGR(in.InitialCapital, final, span(in.Equity))

	calmar := 0.0
	if dd > 0 {
		calmar = cagr / dd
	}

	t := tradeStats(in.Trades)

	return map[string]float64{
		types.MetricCAGR:            cagr,
		types.MetricSharpe:          Sharpe(DailyReturns(in.Equity)),
		types.MetricCalmar:          calmar,
		types.MetricMaxDrawdownPct:  dd,
		types.MetricProfitFactor:    t.profitFactor,
		types.MetricTotalTrades:     float64(len(in.Trades)),
		types.MetricWinRate:         t.winRate,
		types.MetricAvgR:            t.avgR,
		types.MetricMedianR:         t.medianR,
		types.MetricExpectancy:      t.expectancy,
		types.MetricAvgHoldingHours: t.avgHolding,
		types.MetricNetProfit:       final - in.InitialCapital,
		types.MetricFinalEquity:     final,
		types.MetricTotalFees:       in.TotalFees,
	}
}

func span(curve []types.EquityPoint) time.Duration {
	if len(curve) < 2 {
		return 0
	}

	return curve[len(curve)-1].Time.Sub(curve[0].Time)
}

// CAGR is the compound annual growth rate over d. It is zero for an empty
// span or a wiped-out account.
func CAGR(initial, final float64, d time.Duration) float64 {
	years := d.Hours() / 24 / daysPerYear
	if years <= 0 || initial <= 0 || final <= 0 {
		return 0
	}

	return math.Pow(final/initial, 1/years) - 1
}

// MaxDrawdown is the largest peak-to-trough equity decline as a positive
// fraction of the peak.
func MaxDrawdown(curve []types.EquityPoint) float64 {
	peak, worst := 0.0, 0.0

	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}

		if peak > 0 {
			worst = math.Max(worst, (peak-p.Equity)/peak)
		}
	}

	return worst
}

// DailyReturns samples the curve at the last point of each UTC day and
// returns the day-over-day simple returns.
func DailyReturns(curve []types.EquityPoint) []float64 {
	var closes []float64

	var day time.Time

	for i, p := range curve {
		d := p.Time.UTC().Truncate(24 * time.Hour)
		if i == 0 || !d.Equal(day) {
			closes = append(closes, p.Equity)
			day = d

			continue
		}

		closes[len(closes)-1] = p.Equity
	}

	returns := make([]float64, 0, len(closes))

	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 {
			continue
		}

		returns = append(returns, closes[i]/closes[i-1]-1)
	}

	return returns
}

// Sharpe is the annualized ratio of mean to sample standard deviation of
// daily returns, with a zero risk-free rate.
func Sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	mean, std := stat.MeanStdDev(returns, nil)
	if std == 0 || math.IsNaN(std) {
		return 0
	}

	return mean / std * math.Sqrt(PeriodsPerYear)
}

type tradeSummary struct {
	profitFactor float64
	winRate      float64
	avgR         float64
	medianR      float64
	expectancy   float64
	avgHolding   float64
}

func tradeStats(trades []types.TradeRecord) tradeSummary {
	var s tradeSummary
	if len(trades) == 0 {
		return s
	}

	var (
		grossProfit, grossLoss float64
		wins, losses           []float64
	)

	rs := make([]float64, 0, len(trades))
	holding := make([]float64, 0, len(trades))

	for _, t := range trades {
		rs = append(rs, t.RMultiple)
		holding = append(holding, t.HoldingHours)

		switch {
		case t.PnL > 0:
			grossProfit += t.PnL
			wins = append(wins, t.PnL)
		case t.PnL < 0:
			grossLoss -= t.PnL
			losses = append(losses, t.PnL)
		}
	}

	n := float64(len(trades))

	switch {
	case grossProfit == 0:
		s.profitFactor = 0
	case grossLoss == 0:
		s.profitFactor = MaxProfitFactor
	default:
		s.profitFactor = math.Min(grossProfit/grossLoss, MaxProfitFactor)
	}

	s.winRate = float64(len(wins)) / n
	s.avgR = stat.Mean(rs, nil)
	s.medianR = Median(rs)
	s.avgHolding = stat.Mean(holding, nil)
	s.expectancy = Expectancy(wins, losses, len(trades))

	return s
}

// Expectancy is win rate times the average win to average loss ratio, less
// the loss rate. The ratio is capped at MaxProfitFactor, which is also its
// value when there are wins but no losses.
func Expectancy(wins, losses []float64, total int) float64 {
	if total == 0 {
		return 0
	}

	winRate := float64(len(wins)) / float64(total)
	lossRate := float64(len(losses)) / float64(total)

	ratio := 0.0

	switch {
	case len(wins) == 0:
	case len(losses) == 0:
		ratio = MaxProfitFactor
	default:
		ratio = math.Min(stat.Mean(wins, nil)/math.Abs(stat.Mean(losses, nil)), MaxProfitFactor)
	}

	return winRate*ratio - lossRate
}

// Median of xs, averaging the middle pair for even lengths.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}

	return sorted[mid]
}
