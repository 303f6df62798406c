package strategy

import (
	"testing"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ParamsTestSuite struct {
	suite.Suite
}

func TestParamsSuite(t *testing.T) {
	suite.Run(t, new(ParamsTestSuite))
}

func (suite *ParamsTestSuite) TestDefaultsAreValid() {
	suite.NoError(DefaultParams().Validate())
}

func (suite *ParamsTestSuite) TestApplyOverrides() {
	p, err := DefaultParams().ApplyOverrides(map[string]string{
		types.ParamATRStopNegative: "3.5",
		types.ParamSoftExitR:       " 4.0 ",
		ParamFundingWindow:         "72",
		ParamFundingMinSamples:     "24.0",
		ParamRiskPerTrade:          "0.005",
	})
	suite.Require().NoError(err)
	suite.Equal(3.5, p.ATRStopNegative)
	suite.Equal(4.0, p.SoftExitR)
	suite.Equal(72, p.FundingWindow)
	suite.Equal(24, p.FundingMinSamples)
	suite.Equal(0.005, p.RiskPerTrade)

	// untouched keys keep their defaults
	suite.Equal(DefaultParams().ATRStopPositive, p.ATRStopPositive)
}

func (suite *ParamsTestSuite) TestApplyOverridesRejects() {
	tests := []struct {
		name      string
		overrides map[string]string
		code      errors.ErrorCode
	}{
		{"unknown key", map[string]string{"atr_stop_sideways": "2"}, errors.ErrCodeUnknownParameter},
		{"not a number", map[string]string{types.ParamBreakevenR: "one"}, errors.ErrCodeInvalidParameter},
		{"infinite", map[string]string{types.ParamBreakevenR: "Inf"}, errors.ErrCodeInvalidParameter},
		{"fractional int", map[string]string{ParamWarmup: "10.5"}, errors.ErrCodeInvalidParameter},
		{"out of range", map[string]string{types.ParamATRStopNeutral: "-1"}, errors.ErrCodeInvalidParameter},
		{"min above max", map[string]string{ParamMinRiskFrac: "0.05"}, errors.ErrCodeInvalidParameter},
		{"min samples above window", map[string]string{ParamFundingMinSamples: "500"}, errors.ErrCodeInvalidParameter},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			base := DefaultParams()
			p, err := base.ApplyOverrides(tt.overrides)
			suite.Error(err)
			suite.True(errors.HasCode(err, tt.code), "got %v", err)
			suite.True(errors.IsUsage(err))
			suite.Equal(base, p)
		})
	}
}

func (suite *ParamsTestSuite) TestOverrideKeysCoverParameterSet() {
	keys := OverrideKeys()
	for _, k := range types.ParameterKeys {
		suite.Contains(keys, k)
	}

	suite.IsIncreasing(keys)
}

func (suite *ParamsTestSuite) TestBuilders() {
	p := DefaultParams()

	table := p.ProfileTable()
	suite.Equal(2.0, table.Positive.StopMultiplier)
	suite.Equal(0.5, table.Positive.RiskMultiplier)
	suite.Equal(3.0, table.Negative.StopMultiplier)
	suite.Equal(1.5, table.Negative.RiskMultiplier)
	suite.Equal(1.0, table.Threshold)

	policy := p.Policy()
	suite.Equal(p.BreakevenR, policy.BreakevenR)
	suite.Equal(0.75, policy.BreakevenATRFraction)

	budget := p.Budget()
	suite.Equal(0.01, budget.BaseRiskFrac)
	suite.Equal(0.02, budget.MaxRiskFrac)
}
