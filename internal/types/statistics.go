package types

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// Metric keys of a RunRecord.
const (
	MetricCAGR            = "cagr"
	MetricSharpe          = "sharpe"
	MetricCalmar          = "calmar"
	MetricMaxDrawdownPct  = "max_drawdown_pct"
	MetricProfitFactor    = "profit_factor"
	MetricTotalTrades     = "total_trades"
	MetricWinRate         = "win_rate"
	MetricAvgR            = "avg_R"
	MetricMedianR         = "median_R"
	MetricExpectancy      = "expectancy"
	MetricAvgHoldingHours = "avg_holding_hours"
	MetricNetProfit       = "net_profit"
	MetricFinalEquity     = "final_equity"
	MetricTotalFees       = "total_fees"
	MetricScore           = "score"
)

// RunRecord is the summary of one backtest run, keyed by RunID.
type RunRecord struct {
	RunID     string             `yaml:"run_id" json:"run_id"`
	Timestamp time.Time          `yaml:"timestamp" json:"timestamp"`
	Params    map[string]float64 `yaml:"params" json:"params"`
	Metrics   map[string]float64 `yaml:"metrics" json:"metrics"`
}

// Metric returns the named metric if the record carries it.
func (r RunRecord) Metric(key string) optional.Option[float64] {
	v, ok := r.Metrics[key]
	if !ok {
		return optional.None[float64]()
	}

	return optional.Some(v)
}

// Score returns the fitness score if it has been computed.
func (r RunRecord) Score() optional.Option[float64] {
	return r.Metric(MetricScore)
}

// MetricKeys returns the metric names in sorted order.
func (r RunRecord) MetricKeys() []string {
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// WriteRunRecord writes a RunRecord as YAML to path.
func WriteRunRecord(path string, record RunRecord) error {
	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}

	return nil
}

// ReadRunRecord reads a RunRecord written by WriteRunRecord.
func ReadRunRecord(path string) (RunRecord, error) {
	var record RunRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return record, fmt.Errorf("failed to read run record: %w", err)
	}

	if err := yaml.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to unmarshal run record: %w", err)
	}

	return record, nil
}
