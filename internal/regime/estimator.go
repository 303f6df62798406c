// Package regime turns funding-rate observations into a regime signal and maps
// that signal onto the stop and risk multipliers used by the trade machine.
package regime

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultWindowCapacity is one week of hourly funding samples.
	DefaultWindowCapacity = 168
	// DefaultMinSamples is the number of samples required before a z-score is reported.
	DefaultMinSamples = 30
	// StdDevFloor is the standard deviation below which the window is treated as flat.
	StdDevFloor = 1e-8
	// MaxAbsZScore bounds the reported z-score.
	MaxAbsZScore = 5.0
)

// Estimator keeps a bounded FIFO window of funding samples and reports how
// unusual the latest sample is relative to the window.
type Estimator struct {
	samples    []float64
	head       int
	size       int
	minSamples int
}

// NewEstimator creates an estimator. Non-positive arguments fall back to the
// defaults and minSamples never exceeds the capacity.
func NewEstimator(capacity, minSamples int) *Estimator {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}

	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}

	minSamples = min(minSamples, capacity)

	return &Estimator{
		samples:    make([]float64, capacity),
		minSamples: minSamples,
	}
}

// Update appends a sample, evicting the oldest one when the window is full.
// Non-finite samples are ignored.
func (e *Estimator) Update(sample float64) {
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		return
	}

	idx := (e.head + e.size) % len(e.samples)
	if e.size == len(e.samples) {
		e.samples[e.head] = sample
		e.head = (e.head + 1) % len(e.samples)

		return
	}

	e.samples[idx] = sample
	e.size++
}

// Len returns the number of samples currently held.
func (e *Estimator) Len() int {
	return e.size
}

// MinSamples returns the number of samples required before a z-score is reported.
func (e *Estimator) MinSamples() int {
	return e.minSamples
}

// Capacity returns the window capacity.
func (e *Estimator) Capacity() int {
	return len(e.samples)
}

// Latest returns the most recent sample, or 0 when empty.
func (e *Estimator) Latest() float64 {
	if e.size == 0 {
		return 0
	}

	return e.samples[(e.head+e.size-1)%len(e.samples)]
}

// Values returns the window contents from oldest to newest.
func (e *Estimator) Values() []float64 {
	out := make([]float64, e.size)
	for i := 0; i < e.size; i++ {
		out[i] = e.samples[(e.head+i)%len(e.samples)]
	}

	return out
}

// Reset empties the window.
func (e *Estimator) Reset() {
	e.head = 0
	e.size = 0
}

// ZScore returns the clamped z-score of the latest sample against the window
// population mean and standard deviation. It is 0 until the window holds
// enough samples and when the window is numerically flat.
func (e *Estimator) ZScore() float64 {
	if e.size < e.minSamples {
		return 0
	}

	mean, std := stat.PopMeanStdDev(e.Values(), nil)
	if std < StdDevFloor {
		return 0
	}

	return clamp((e.Latest()-mean)/std, -MaxAbsZScore, MaxAbsZScore)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
