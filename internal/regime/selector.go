package regime

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// Funding bucket labels used as trade features.
const (
	BucketPositive = "funding_positive"
	BucketNeutral  = "funding_neutral"
	BucketNegative = "funding_negative"
)

// ExtremeZScore marks a funding reading as extreme.
const ExtremeZScore = 2.0

// Profile is the pair of multipliers applied in one regime.
type Profile struct {
	StopMultiplier float64 `yaml:"stop_multiplier" json:"stop_multiplier" validate:"gt=0"`
	RiskMultiplier float64 `yaml:"risk_multiplier" json:"risk_multiplier" validate:"gt=0"`
}

// ProfileTable maps the three funding regimes onto profiles.
// Positive funding (crowded longs) gets tighter stops and smaller risk.
type ProfileTable struct {
	Positive  Profile `yaml:"positive" json:"positive"`
	Neutral   Profile `yaml:"neutral" json:"neutral"`
	Negative  Profile `yaml:"negative" json:"negative"`
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gte=0"`
}

// DefaultProfileTable returns the stock three-tier table.
func DefaultProfileTable() ProfileTable {
	return ProfileTable{
		Positive:  Profile{StopMultiplier: 2.0, RiskMultiplier: 0.5},
		Neutral:   Profile{StopMultiplier: 2.5, RiskMultiplier: 1.0},
		Negative:  Profile{StopMultiplier: 3.0, RiskMultiplier: 1.5},
		Threshold: 1.0,
	}
}

// Validate checks every profile of the table.
func (t ProfileTable) Validate() error {
	if err := validator.New().Struct(t); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid risk profile table", err)
	}

	return nil
}

// Selector picks the risk profile for a funding z-score.
type Selector struct {
	table ProfileTable
}

// NewSelector creates a selector over the given table.
func NewSelector(table ProfileTable) *Selector {
	return &Selector{table: table}
}

// Table returns the table the selector was built with.
func (s *Selector) Table() ProfileTable {
	return s.table
}

// Select maps z onto a snapshot. Boundary values fall into the neutral tier.
func (s *Selector) Select(z float64) types.RegimeSnapshot {
	p := s.profile(z)

	return types.RegimeSnapshot{
		ZScore:         z,
		StopMultiplier: p.StopMultiplier,
		RiskMultiplier: p.RiskMultiplier,
	}
}

// Bucket returns the funding bucket label for z.
func (s *Selector) Bucket(z float64) string {
	switch {
	case z > s.table.Threshold:
		return BucketPositive
	case z < -s.table.Threshold:
		return BucketNegative
	default:
		return BucketNeutral
	}
}

func (s *Selector) profile(z float64) Profile {
	switch {
	case z > s.table.Threshold:
		return s.table.Positive
	case z < -s.table.Threshold:
		return s.table.Negative
	default:
		return s.table.Neutral
	}
}
