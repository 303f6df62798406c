package optimizer

import (
	"sort"

	"github.com/rxtech-lab/funding-breakout/internal/types"
	"github.com/rxtech-lab/funding-breakout/pkg/errors"
)

// GridConfig lists the discrete values explored per parameter.
type GridConfig struct {
	ATRStopNegative []float64 `yaml:"atr_stop_negative" json:"atr_stop_negative" validate:"required,min=1"`
	ATRStopNeutral  []float64 `yaml:"atr_stop_neutral" json:"atr_stop_neutral" validate:"required,min=1"`
	ATRStopPositive []float64 `yaml:"atr_stop_positive" json:"atr_stop_positive" validate:"required,min=1"`
	BreakevenR      []float64 `yaml:"breakeven_r" json:"breakeven_r" validate:"required,min=1"`
	TrailStartR     []float64 `yaml:"trail_start_r" json:"trail_start_r" validate:"required,min=1"`
	SoftExitR       []float64 `yaml:"soft_exit_r" json:"soft_exit_r" validate:"required,min=1"`
}

// DefaultGridConfig returns the stock search space.
func DefaultGridConfig() GridConfig {
	return GridConfig{
		ATRStopNegative: []float64{3.0, 3.5, 4.0, 4.5},
		ATRStopNeutral:  []float64{2.0, 2.25, 2.5, 2.75, 3.0},
		ATRStopPositive: []float64{1.5, 1.75, 2.0, 2.25},
		BreakevenR:      []float64{0.8, 1.0, 1.2, 1.4},
		TrailStartR:     []float64{1.8, 2.1, 2.4, 2.7},
		SoftExitR:       []float64{3.0, 3.5, 4.0, 4.5},
	}
}

func (g GridConfig) axes() [6][]float64 {
	return [6][]float64{
		g.ATRStopNegative,
		g.ATRStopNeutral,
		g.ATRStopPositive,
		g.BreakevenR,
		g.TrailStartR,
		g.SoftExitR,
	}
}

// Size returns the unconstrained number of combinations.
func (g GridConfig) Size() int {
	n := 1
	for _, axis := range g.axes() {
		n *= len(axis)
	}

	return n
}

// Constraint rejects parameter combinations that make no sense together.
type Constraint func(types.ParameterSet) bool

// StopOrdering requires negative >= neutral >= positive stop multipliers.
func StopOrdering(p types.ParameterSet) bool {
	return p.ATRStopNegative >= p.ATRStopNeutral && p.ATRStopNeutral >= p.ATRStopPositive
}

// SoftExitAboveTrail requires the soft exit to start after trailing does.
func SoftExitAboveTrail(p types.ParameterSet) bool {
	return p.SoftExitR > p.TrailStartR
}

// DefaultConstraints are the constraints applied by NewGenerator.
var DefaultConstraints = []Constraint{StopOrdering, SoftExitAboveTrail}

// Run pairs a parameter set with its run id.
type Run struct {
	ID     string
	Params types.ParameterSet
}

// Generator enumerates the constrained grid.
type Generator struct {
	grid        GridConfig
	constraints []Constraint
}

// NewGenerator creates a generator with DefaultConstraints plus any extra ones.
func NewGenerator(grid GridConfig, extra ...Constraint) *Generator {
	constraints := append(append([]Constraint(nil), DefaultConstraints...), extra...)

	return &Generator{grid: grid, constraints: constraints}
}

// Generate returns every valid combination, sorted by parameter tuple and
// de-duplicated. The output does not depend on the order of the value lists.
func (g *Generator) Generate() ([]Run, error) {
	axes := g.grid.axes()
	for i, axis := range axes {
		if len(axis) == 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "grid axis %s has no values", types.ParameterKeys[i])
		}
	}

	seen := make(map[[6]float64]struct{})

	var sets []types.ParameterSet

	var tuple [6]float64

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(axes) {
			if _, dup := seen[tuple]; dup {
				return
			}

			p := types.ParameterSetFromTuple(tuple)
			if !g.accept(p) {
				return
			}

			seen[tuple] = struct{}{}
			sets = append(sets, p)

			return
		}

		for _, v := range axes[depth] {
			tuple[depth] = v
			walk(depth + 1)
		}
	}
	walk(0)

	sort.Slice(sets, func(i, j int) bool { return sets[i].Less(sets[j]) })

	runs := make([]Run, len(sets))
	for i, p := range sets {
		runs[i] = Run{ID: RunID(p), Params: p}
	}

	return runs, nil
}

func (g *Generator) accept(p types.ParameterSet) bool {
	if !p.IsFinite() {
		return false
	}

	for _, c := range g.constraints {
		if !c(p) {
			return false
		}
	}

	return true
}
