package types

// RegimeSnapshot is the funding regime read at one tick.
type RegimeSnapshot struct {
	ZScore         float64 `yaml:"z_score" json:"z_score" csv:"z_score"`
	StopMultiplier float64 `yaml:"stop_multiplier" json:"stop_multiplier" csv:"stop_multiplier"`
	RiskMultiplier float64 `yaml:"risk_multiplier" json:"risk_multiplier" csv:"risk_multiplier"`
}
