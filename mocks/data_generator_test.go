package mocks

import (
	"testing"
	"time"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Count = 100

	data := gen.Generate(config)

	if len(data) != 100 {
		t.Errorf("expected 100 data points, got %d", len(data))
	}

	for i := 1; i < len(data); i++ {
		if !data[i].Time.After(data[i-1].Time) {
			t.Errorf("data not in chronological order at index %d", i)
		}
	}

	for i, d := range data {
		if d.Symbol != config.Symbol {
			t.Errorf("expected symbol %s at index %d, got %s", config.Symbol, i, d.Symbol)
		}

		if !d.IsUsable() {
			t.Errorf("unusable bar at index %d: O=%f H=%f L=%f C=%f", i, d.Open, d.High, d.Low, d.Close)
		}

		if d.High < d.Low {
			t.Errorf("High < Low at index %d: H=%f L=%f", i, d.High, d.Low)
		}
	}

	expectedInterval := config.Interval
	for i := 1; i < len(data); i++ {
		actualInterval := data[i].Time.Sub(data[i-1].Time)
		if actualInterval != expectedInterval {
			t.Errorf("unexpected interval at index %d: expected %v, got %v",
				i, expectedInterval, actualInterval)
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(42)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	for i := range data1 {
		if data1[i].Close != data2[i].Close {
			t.Errorf("data not reproducible at index %d: got %f and %f",
				i, data1[i].Close, data2[i].Close)
		}
	}
}

func TestDataGenerator_Different_Seeds(t *testing.T) {
	gen1 := NewDataGenerator(42)
	gen2 := NewDataGenerator(123)

	config := DefaultConfig()
	config.Count = 10

	data1 := gen1.Generate(config)
	data2 := gen2.Generate(config)

	sameCount := 0
	for i := range data1 {
		if data1[i].Close == data2[i].Close {
			sameCount++
		}
	}

	if sameCount == len(data1) {
		t.Error("different seeds produced identical data")
	}
}

func TestDataGenerator_GenerateFunding(t *testing.T) {
	gen := NewDataGenerator(7)
	config := DefaultFundingConfig()
	config.Count = 500

	samples := gen.GenerateFunding(config)
	if len(samples) != 500 {
		t.Fatalf("expected 500 samples, got %d", len(samples))
	}

	sum := 0.0
	for i, s := range samples {
		if !s.IsUsable() {
			t.Errorf("unusable sample at index %d", i)
		}

		if i > 0 && s.Time.Sub(samples[i-1].Time) != config.Interval {
			t.Errorf("unexpected funding interval at index %d", i)
		}

		sum += s.Value
	}

	// mean reversion keeps the average close to the configured mean
	mean := sum / float64(len(samples))
	if mean < config.Mean-0.0001 || mean > config.Mean+0.0001 {
		t.Errorf("funding mean %f drifted away from %f", mean, config.Mean)
	}
}

func TestGenerateRun(t *testing.T) {
	bars, funding := GenerateRun(42, 240)

	if len(bars) != 240 {
		t.Errorf("expected 240 bars, got %d", len(bars))
	}

	// 240 hourly bars span 10 days: 30 settlements plus the opening one
	if len(funding) != 31 {
		t.Errorf("expected 31 funding samples, got %d", len(funding))
	}

	if !funding[0].Time.Equal(bars[0].Time) {
		t.Errorf("funding starts at %s, bars at %s", funding[0].Time, bars[0].Time)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Symbol != "BTCUSDT" {
		t.Errorf("expected default symbol BTCUSDT, got %s", config.Symbol)
	}

	if config.Interval != time.Hour {
		t.Errorf("expected default interval 1h, got %v", config.Interval)
	}

	if config.InitialPrice != 40000.0 {
		t.Errorf("expected default initial price 40000, got %f", config.InitialPrice)
	}
}
