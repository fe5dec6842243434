// SPDX-License-Identifier: MIT
package pitch

// RawEstimate is one unsmoothed estimator result for an analysis window.
// Frequency 0 or Confidence 0 both mean "no detection".
type RawEstimate struct {
	Frequency  float64 // Hz, >= 0
	Confidence float64 // [0, 1]
}

// Valid reports whether the estimate carries a detection.
func (e RawEstimate) Valid() bool {
	return e.Frequency > 0 && e.Confidence > 0
}

// Estimator produces a raw pitch estimate from the most recent analysis
// window. Implementations must be deterministic, never index outside the
// window, never allocate after construction, and return a zero RawEstimate
// on silence or noise instead of failing.
type Estimator interface {
	// Estimate consumes one analysis window of exactly WindowSize samples.
	Estimate(window []float32) RawEstimate
	// WindowSize returns the number of samples an analysis window must hold.
	WindowSize() int
}

// SpectrumProvider is implemented by estimators that can expose their most
// recent magnitude spectrum and noise floor for debug reporting.
type SpectrumProvider interface {
	Magnitudes() []float64
	FreqForBin(bin int) float64
	NoiseFloor() float64
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
