package types

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// Parameter keys shared by the grid, the override flags and the run record.
const (
	ParamATRStopNegative = "atr_stop_negative"
	ParamATRStopNeutral  = "atr_stop_neutral"
	ParamATRStopPositive = "atr_stop_positive"
	ParamBreakevenR      = "breakeven_r"
	ParamTrailStartR     = "trail_start_r"
	ParamSoftExitR       = "soft_exit_r"
)

// ParameterKeys lists the ParameterSet keys in tuple order.
var ParameterKeys = []string{
	ParamATRStopNegative,
	ParamATRStopNeutral,
	ParamATRStopPositive,
	ParamBreakevenR,
	ParamTrailStartR,
	ParamSoftExitR,
}

// ParameterSet is one point of the risk-parameter grid. Treat it as immutable.
type ParameterSet struct {
	ATRStopNegative float64 `yaml:"atr_stop_negative" json:"atr_stop_negative" validate:"gt=0"`
	ATRStopNeutral  float64 `yaml:"atr_stop_neutral" json:"atr_stop_neutral" validate:"gt=0"`
	ATRStopPositive float64 `yaml:"atr_stop_positive" json:"atr_stop_positive" validate:"gt=0"`
	BreakevenR      float64 `yaml:"breakeven_r" json:"breakeven_r" validate:"gt=0"`
	TrailStartR     float64 `yaml:"trail_start_r" json:"trail_start_r" validate:"gt=0"`
	SoftExitR       float64 `yaml:"soft_exit_r" json:"soft_exit_r" validate:"gt=0"`
}

// Tuple returns the values in ParameterKeys order.
func (p ParameterSet) Tuple() [6]float64 {
	return [6]float64{
		p.ATRStopNegative,
		p.ATRStopNeutral,
		p.ATRStopPositive,
		p.BreakevenR,
		p.TrailStartR,
		p.SoftExitR,
	}
}

// AsMap returns the parameter content keyed by name.
func (p ParameterSet) AsMap() map[string]float64 {
	t := p.Tuple()
	m := make(map[string]float64, len(ParameterKeys))

	for i, k := range ParameterKeys {
		m[k] = t[i]
	}

	return m
}

// ParameterSetFromTuple builds a set from values in ParameterKeys order.
func ParameterSetFromTuple(t [6]float64) ParameterSet {
	return ParameterSet{
		ATRStopNegative: t[0],
		ATRStopNeutral:  t[1],
		ATRStopPositive: t[2],
		BreakevenR:      t[3],
		TrailStartR:     t[4],
		SoftExitR:       t[5],
	}
}

// IsFinite reports whether every value is a finite number.
func (p ParameterSet) IsFinite() bool {
	for _, v := range p.Tuple() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Validate checks that the set is finite and positive.
func (p ParameterSet) Validate() error {
	if !p.IsFinite() {
		return errors.New(errors.ErrCodeInvalidParameter, "parameter set contains non-finite values")
	}

	if err := validator.New().Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid parameter set", err)
	}

	return nil
}

// Less orders sets by their tuple, lexicographically.
func (p ParameterSet) Less(other ParameterSet) bool {
	a, b := p.Tuple(), other.Tuple()
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}

	return false
}
