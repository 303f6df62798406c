package strategy

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/funding-breakout/internal/regime"
	"github.com/rxtech-lab/funding-breakout/internal/risk"
	"github.com/rxtech-lab/funding-breakout/internal/trade"
	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// Override keys beyond the ParameterSet keys.
const (
	ParamRiskPerTrade      = "risk_per_trade"
	ParamMinRiskFrac       = "min_risk_frac"
	ParamMaxRiskFrac       = "max_risk_frac"
	ParamBreakevenATRFrac  = "breakeven_atr_frac"
	ParamRiskMultPositive  = "risk_mult_positive"
	ParamRiskMultNeutral   = "risk_mult_neutral"
	ParamRiskMultNegative  = "risk_mult_negative"
	ParamZThreshold        = "z_threshold"
	ParamFundingWindow     = "funding_window"
	ParamFundingMinSamples = "funding_min_samples"
	ParamFundingLongMax    = "funding_long_max"
	ParamEntryChannel      = "entry_channel"
	ParamExitChannel       = "exit_channel"
	ParamTrendEMA          = "trend_ema"
	ParamExitEMA           = "exit_ema"
	ParamATRPeriod         = "atr_period"
	ParamATRSMAPeriod      = "atr_sma_period"
	ParamWarmup            = "warmup"
)

// Params is the full per-run configuration of the strategy.
type Params struct {
	types.ParameterSet `yaml:",inline"`

	RiskPerTrade     float64 `yaml:"risk_per_trade" json:"risk_per_trade" validate:"gt=0,lte=1"`
	MinRiskFrac      float64 `yaml:"min_risk_frac" json:"min_risk_frac" validate:"gte=0,lte=1"`
	MaxRiskFrac      float64 `yaml:"max_risk_frac" json:"max_risk_frac" validate:"gt=0,lte=1,gtefield=MinRiskFrac"`
	BreakevenATRFrac float64 `yaml:"breakeven_atr_frac" json:"breakeven_atr_frac" validate:"gte=0"`

	RiskMultPositive float64 `yaml:"risk_mult_positive" json:"risk_mult_positive" validate:"gt=0"`
	RiskMultNeutral  float64 `yaml:"risk_mult_neutral" json:"risk_mult_neutral" validate:"gt=0"`
	RiskMultNegative float64 `yaml:"risk_mult_negative" json:"risk_mult_negative" validate:"gt=0"`
	ZThreshold       float64 `yaml:"z_threshold" json:"z_threshold" validate:"gte=0"`

	FundingWindow     int     `yaml:"funding_window" json:"funding_window" validate:"gt=0"`
	FundingMinSamples int     `yaml:"funding_min_samples" json:"funding_min_samples" validate:"gt=1,ltefield=FundingWindow"`
	FundingLongMax    float64 `yaml:"funding_long_max" json:"funding_long_max"`

	EntryChannel int `yaml:"entry_channel" json:"entry_channel" validate:"gt=0"`
	ExitChannel  int `yaml:"exit_channel" json:"exit_channel" validate:"gt=0"`
	TrendEMA     int `yaml:"trend_ema" json:"trend_ema" validate:"gt=0"`
	ExitEMA      int `yaml:"exit_ema" json:"exit_ema" validate:"gt=0"`
	ATRPeriod    int `yaml:"atr_period" json:"atr_period" validate:"gt=0"`
	ATRSMAPeriod int `yaml:"atr_sma_period" json:"atr_sma_period" validate:"gt=0"`
	// Warmup is the number of leading bars that only feed indicators.
	Warmup int `yaml:"warmup" json:"warmup" validate:"gte=0"`
}

// DefaultParams returns the stock strategy configuration.
func DefaultParams() Params {
	return Params{
		ParameterSet: types.ParameterSet{
			ATRStopNegative: 3.0,
			ATRStopNeutral:  2.5,
			ATRStopPositive: 2.0,
			BreakevenR:      1.0,
			TrailStartR:     2.0,
			SoftExitR:       3.0,
		},
		RiskPerTrade:      0.01,
		MinRiskFrac:       0.0025,
		MaxRiskFrac:       0.02,
		BreakevenATRFrac:  0.75,
		RiskMultPositive:  0.5,
		RiskMultNeutral:   1.0,
		RiskMultNegative:  1.5,
		ZThreshold:        1.0,
		FundingWindow:     regime.DefaultWindowCapacity,
		FundingMinSamples: regime.DefaultMinSamples,
		FundingLongMax:    0.0001,
		EntryChannel:      20,
		ExitChannel:       10,
		TrendEMA:          200,
		ExitEMA:           50,
		ATRPeriod:         14,
		ATRSMAPeriod:      50,
		Warmup:            300,
	}
}

type setter func(p *Params, raw string) error

func floatField(get func(p *Params) *float64) setter {
	return func(p *Params, raw string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeInvalidParameter, "value %q is not a finite number", raw)
		}

		*get(p) = v

		return nil
	}
}

// intField also accepts integral floats such as "168.0".
func intField(get func(p *Params) *int) setter {
	return func(p *Params, raw string) error {
		raw = strings.TrimSpace(raw)
		if v, err := strconv.Atoi(raw); err == nil {
			*get(p) = v

			return nil
		}

		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "value %q is not an integer", raw)
		}

		*get(p) = int(v)

		return nil
	}
}

var setters = map[string]setter{
	types.ParamATRStopNegative: floatField(func(p *Params) *float64 { return &p.ATRStopNegative }),
	types.ParamATRStopNeutral:  floatField(func(p *Params) *float64 { return &p.ATRStopNeutral }),
	types.ParamATRStopPositive: floatField(func(p *Params) *float64 { return &p.ATRStopPositive }),
	types.ParamBreakevenR:      floatField(func(p *Params) *float64 { return &p.BreakevenR }),
	types.ParamTrailStartR:     floatField(func(p *Params) *float64 { return &p.TrailStartR }),
	types.ParamSoftExitR:       floatField(func(p *Params) *float64 { return &p.SoftExitR }),
	ParamRiskPerTrade:          floatField(func(p *Params) *float64 { return &p.RiskPerTrade }),
	ParamMinRiskFrac:           floatField(func(p *Params) *float64 { return &p.MinRiskFrac }),
	ParamMaxRiskFrac:           floatField(func(p *Params) *float64 { return &p.MaxRiskFrac }),
	ParamBreakevenATRFrac:      floatField(func(p *Params) *float64 { return &p.BreakevenATRFrac }),
	ParamRiskMultPositive:      floatField(func(p *Params) *float64 { return &p.RiskMultPositive }),
	ParamRiskMultNeutral:       floatField(func(p *Params) *float64 { return &p.RiskMultNeutral }),
	ParamRiskMultNegative:      floatField(func(p *Params) *float64 { return &p.RiskMultNegative }),
	ParamZThreshold:            floatField(func(p *Params) *float64 { return &p.ZThreshold }),
	ParamFundingWindow:         intField(func(p *Params) *int { return &p.FundingWindow }),
	ParamFundingMinSamples:     intField(func(p *Params) *int { return &p.FundingMinSamples }),
	ParamFundingLongMax:        floatField(func(p *Params) *float64 { return &p.FundingLongMax }),
	ParamEntryChannel:          intField(func(p *Params) *int { return &p.EntryChannel }),
	ParamExitChannel:           intField(func(p *Params) *int { return &p.ExitChannel }),
	ParamTrendEMA:              intField(func(p *Params) *int { return &p.TrendEMA }),
	ParamExitEMA:               intField(func(p *Params) *int { return &p.ExitEMA }),
	ParamATRPeriod:             intField(func(p *Params) *int { return &p.ATRPeriod }),
	ParamATRSMAPeriod:          intField(func(p *Params) *int { return &p.ATRSMAPeriod }),
	ParamWarmup:                intField(func(p *Params) *int { return &p.Warmup }),
}

// OverrideKeys returns every key accepted by ApplyOverrides, sorted.
func OverrideKeys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// ApplyOverrides returns a copy of p with the named overrides applied and
// validated. Unknown keys and unparsable values are rejected; keys are
// applied in sorted order so the first reported error is stable.
func (p Params) ApplyOverrides(overrides map[string]string) (Params, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := p

	for _, k := range keys {
		set, ok := setters[k]
		if !ok {
			return p, errors.Newf(errors.ErrCodeUnknownParameter, "unknown parameter %q", k)
		}

		if err := set(&out, overrides[k]); err != nil {
			return p, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid value for parameter %q", k)
		}
	}

	if err := out.Validate(); err != nil {
		return p, err
	}

	return out, nil
}

// Validate checks field bounds.
func (p Params) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid strategy parameters", err)
	}

	return nil
}

// ProfileTable builds the regime table from the stop and risk multipliers.
func (p Params) ProfileTable() regime.ProfileTable {
	return regime.ProfileTable{
		Positive:  regime.Profile{StopMultiplier: p.ATRStopPositive, RiskMultiplier: p.RiskMultPositive},
		Neutral:   regime.Profile{StopMultiplier: p.ATRStopNeutral, RiskMultiplier: p.RiskMultNeutral},
		Negative:  regime.Profile{StopMultiplier: p.ATRStopNegative, RiskMultiplier: p.RiskMultNegative},
		Threshold: p.ZThreshold,
	}
}

// Policy builds the stop management thresholds.
func (p Params) Policy() trade.Policy {
	return trade.Policy{
		BreakevenR:           p.BreakevenR,
		BreakevenATRFraction: p.BreakevenATRFrac,
		TrailStartR:          p.TrailStartR,
		SoftExitR:            p.SoftExitR,
	}
}

// Budget builds the sizer risk budget.
func (p Params) Budget() risk.Budget {
	return risk.Budget{
		BaseRiskFrac: p.RiskPerTrade,
		MinRiskFrac:  p.MinRiskFrac,
		MaxRiskFrac:  p.MaxRiskFrac,
	}
}
