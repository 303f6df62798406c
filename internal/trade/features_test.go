package trade

import (
	"testing"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/regime"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEntryFeatures(t *testing.T) {
	at := time.Date(2024, 3, 8, 17, 30, 0, 0, time.UTC) // Friday

	f := EntryFeatures(FeatureInput{
		Time:        at,
		Funding:     0.0003,
		Regime:      types.RegimeSnapshot{ZScore: 2.4, StopMultiplier: 2, RiskMultiplier: 0.5},
		Selector:    regime.NewSelector(regime.DefaultProfileTable()),
		ATR:         160,
		ATRBaseline: 100,
	})

	assert.Equal(t, "Friday", f.Weekday)
	assert.Equal(t, 17, f.Hour)
	assert.Equal(t, types.SessionUS, f.Session)
	assert.Equal(t, regime.BucketPositive, f.FundingBucket)
	assert.Equal(t, 1, f.FundingSign)
	assert.True(t, f.FundingExtreme)
	assert.Equal(t, 2.4, f.FundingZ)
	assert.Equal(t, VolRegimeHigh, f.VolRegime)
}

func TestEntryFeaturesNeutral(t *testing.T) {
	f := EntryFeatures(FeatureInput{
		Time:        time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC),
		Funding:     -0.0001,
		Regime:      types.RegimeSnapshot{ZScore: -0.5},
		ATR:         110,
		ATRBaseline: 100,
	})

	assert.Equal(t, regime.BucketNeutral, f.FundingBucket)
	assert.Equal(t, -1, f.FundingSign)
	assert.False(t, f.FundingExtreme)
	assert.Equal(t, types.SessionAsia, f.Session)
	assert.Equal(t, VolRegimeNormal, f.VolRegime)
}

func TestVolRegime(t *testing.T) {
	assert.Equal(t, VolRegimeLow, volRegime(90, 100))
	assert.Equal(t, VolRegimeNormal, volRegime(100, 100))
	assert.Equal(t, VolRegimeHigh, volRegime(150, 100))
	assert.Equal(t, VolRegimeNormal, volRegime(5, 0))
}
