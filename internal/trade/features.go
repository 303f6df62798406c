package trade

import (
	"math"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/regime"
	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// Volatility regime labels, by ATR relative to its own average.
const (
	VolRegimeLow    = "vol_low"
	VolRegimeNormal = "vol_normal"
	VolRegimeHigh   = "vol_high"

	highVolRatio = 1.5
)

// FeatureInput is the market context at entry.
type FeatureInput struct {
	Time        time.Time
	Funding     float64
	Regime      types.RegimeSnapshot
	Selector    *regime.Selector
	ATR         float64
	ATRBaseline float64
}

// EntryFeatures derives the categorical labels frozen into a trade at entry.
func EntryFeatures(in FeatureInput) types.EntryFeatures {
	t := in.Time.UTC()

	bucket := regime.BucketNeutral
	if in.Selector != nil {
		bucket = in.Selector.Bucket(in.Regime.ZScore)
	}

	return types.EntryFeatures{
		Weekday:        t.Weekday().String(),
		Hour:           t.Hour(),
		Session:        types.SessionFor(t),
		Funding:        in.Funding,
		FundingZ:       in.Regime.ZScore,
		FundingBucket:  bucket,
		FundingSign:    sign(in.Funding),
		FundingExtreme: math.Abs(in.Regime.ZScore) >= regime.ExtremeZScore,
		VolRegime:      volRegime(in.ATR, in.ATRBaseline),
	}
}

func volRegime(atr, baseline float64) string {
	if baseline <= 0 {
		return VolRegimeNormal
	}

	switch ratio := atr / baseline; {
	case ratio < 1:
		return VolRegimeLow
	case ratio >= highVolRatio:
		return VolRegimeHigh
	default:
		return VolRegimeNormal
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
