package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/funding-breakout/internal/types"
)

// DataGenerator generates realistic market data for testing and benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how market data is generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "BTCUSDT")
	Symbol string
	// StartTime is the beginning of the data series
	StartTime time.Time
	// Interval is the duration between each bar
	Interval time.Duration
	// Count is the number of data points to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// Trend is the drift factor across the whole series (-0.5 to 0.5 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// FundingConfig configures the generated funding-rate series.
type FundingConfig struct {
	StartTime time.Time
	// Interval between settlements, 8h on most perpetual venues
	Interval time.Duration
	Count    int
	// Mean is the long-run funding rate the series reverts to
	Mean float64
	// Reversion is the pull towards Mean per step, in (0, 1]
	Reversion float64
	// Volatility is the standard deviation of each step
	Volatility float64
}

// DefaultConfig returns a sensible default configuration: hourly BTC-like bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "BTCUSDT",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Hour,
		Count:          2000,
		InitialPrice:   40000.0,
		Volatility:     0.006, // 0.6% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     250,
		VolumeVariance: 0.3,
	}
}

// DefaultFundingConfig returns an 8h funding series covering the default bars.
func DefaultFundingConfig() FundingConfig {
	return FundingConfig{
		StartTime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   8 * time.Hour,
		Count:      250,
		Mean:       0.00005,
		Reversion:  0.2,
		Volatility: 0.00004,
	}
}

// normal draws a standard normal variate using the Box-Muller transform.
func (g *DataGenerator) normal() float64 {
	u1 := g.rng.Float64()
	for u1 == 0 {
		u1 = g.rng.Float64()
	}

	u2 := g.rng.Float64()

	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Generate creates a slice of MarketData based on the configuration.
// The generated data follows a geometric Brownian motion model for realistic price movements.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.MarketData {
	data := make([]types.MarketData, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	drift := 0.0
	if config.Count > 0 {
		drift = config.Trend / float64(config.Count) // Distribute trend across bars
	}

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		close := open * (1 + config.Volatility*g.normal() + drift)
		if close <= 0 {
			close = open * 0.99 // Prevent negative prices
		}

		// High and low are within the open-close range plus some extension
		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension

		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation

		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		data[i] = types.MarketData{
			Symbol: config.Symbol,
			Time:   currentTime,
			Open:   roundToDecimals(open, 2),
			High:   roundToDecimals(high, 2),
			Low:    roundToDecimals(low, 2),
			Close:  roundToDecimals(close, 2),
			Volume: roundToDecimals(volume, 4),
		}

		currentPrice = data[i].Close
		currentTime = currentTime.Add(config.Interval)
	}

	return data
}

// GenerateFunding creates a mean-reverting funding-rate series.
func (g *DataGenerator) GenerateFunding(config FundingConfig) []types.FundingSample {
	samples := make([]types.FundingSample, config.Count)
	rate := config.Mean
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		rate += config.Reversion*(config.Mean-rate) + config.Volatility*g.normal()

		samples[i] = types.FundingSample{
			Time:  currentTime,
			Value: roundToDecimals(rate, 8),
		}

		currentTime = currentTime.Add(config.Interval)
	}

	return samples
}

// GenerateRun returns matching bars and funding samples for a backtest.
func GenerateRun(seed int64, bars int) ([]types.MarketData, []types.FundingSample) {
	gen := NewDataGenerator(seed)

	config := DefaultConfig()
	config.Count = bars

	funding := DefaultFundingConfig()
	funding.StartTime = config.StartTime
	funding.Count = int(time.Duration(bars)*config.Interval/funding.Interval) + 1

	return gen.Generate(config), gen.GenerateFunding(funding)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
