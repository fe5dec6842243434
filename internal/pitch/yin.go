// SPDX-License-Identifier: MIT
package pitch

import "fmt"

// YinEstimator estimates the fundamental in the time domain with a
// cumulative-mean normalized difference function over the window's first
// half, per de Cheveigné & Kawahara. Cheaper per hop than the spectral
// estimator and usable with smaller windows, at the cost of robustness on
// very noisy input.
type YinEstimator struct {
	sampleRate float64
	windowSize int
	half       int
	minLag     int
	maxLag     int
	threshold  float64
	minFreq    float64
	maxFreq    float64

	diff []float64
}

// NewYinEstimator creates a YIN-style estimator for the given window size
// and band [minFreq, maxFreq]. threshold is the aperiodicity tolerance
// (typically 0.1–0.2).
func NewYinEstimator(windowSize int, sampleRate, minFreq, maxFreq, threshold float64) (*YinEstimator, error) {
	if windowSize < 4 {
		return nil, fmt.Errorf("window size %d too small for difference function", windowSize)
	}
	if sampleRate <= 0 || minFreq <= 0 || maxFreq <= minFreq {
		return nil, fmt.Errorf("invalid band [%.1f, %.1f] at sample rate %.1f", minFreq, maxFreq, sampleRate)
	}

	half := windowSize / 2
	minLag := int(sampleRate / maxFreq)
	if minLag < 2 {
		minLag = 2
	}
	maxLag := int(sampleRate/minFreq) + 1
	if maxLag > half-1 {
		maxLag = half - 1
	}
	if minLag >= maxLag {
		minDetectable := sampleRate / float64(half-1)
		return nil, fmt.Errorf("band [%.1f, %.1f] Hz needs a larger window; minimum detectable is %.1f Hz", minFreq, maxFreq, minDetectable)
	}

	return &YinEstimator{
		sampleRate: sampleRate,
		windowSize: windowSize,
		half:       half,
		minLag:     minLag,
		maxLag:     maxLag,
		threshold:  threshold,
		minFreq:    minFreq,
		maxFreq:    maxFreq,
		diff:       make([]float64, maxLag+1),
	}, nil
}

func (y *YinEstimator) WindowSize() int {
	return y.windowSize
}

// Estimate runs the difference function over the window and returns the
// refined fundamental, or a zero estimate when no lag is periodic enough.
func (y *YinEstimator) Estimate(window []float32) RawEstimate {
	y.difference(window)
	y.normalize()

	lag := y.pickLag()
	conf := clamp01(1 - y.diff[lag])
	if conf <= 0 {
		return RawEstimate{}
	}

	refined := y.refineLag(lag)
	if refined <= 0 {
		return RawEstimate{}
	}
	freq := y.sampleRate / refined
	if !isUsableFrequency(freq, y.minFreq, y.maxFreq) {
		return RawEstimate{}
	}

	return RawEstimate{Frequency: freq, Confidence: conf}
}

// difference fills diff with the squared difference of the window's first
// half against lagged copies of itself.
func (y *YinEstimator) difference(window []float32) {
	for tau := 0; tau <= y.maxLag; tau++ {
		var sum float64
		for i := 0; i < y.half; i++ {
			delta := float64(window[i]) - float64(window[i+tau])
			sum += delta * delta
		}
		y.diff[tau] = sum
	}
}

// normalize converts diff to the cumulative mean normalized difference.
// A degenerate running sum (silence) normalizes to 1, i.e. aperiodic.
func (y *YinEstimator) normalize() {
	y.diff[0] = 1
	var runningSum float64
	for tau := 1; tau <= y.maxLag; tau++ {
		runningSum += y.diff[tau]
		if runningSum < interpEpsilon {
			y.diff[tau] = 1
			continue
		}
		y.diff[tau] = y.diff[tau] * float64(tau) / runningSum
	}
}

// pickLag returns the first lag under the detection threshold, walking
// forward while the function keeps decreasing so a spuriously short lag
// does not win over the true period. Falls back to the global minimum when
// nothing crosses the threshold.
func (y *YinEstimator) pickLag() int {
	for tau := y.minLag; tau <= y.maxLag; tau++ {
		if y.diff[tau] < y.threshold {
			for tau+1 <= y.maxLag && y.diff[tau+1] < y.diff[tau] {
				tau++
			}
			return tau
		}
	}

	best := y.minLag
	for tau := y.minLag + 1; tau <= y.maxLag; tau++ {
		if y.diff[tau] < y.diff[best] {
			best = tau
		}
	}
	return best
}

// refineLag applies parabolic interpolation around the chosen lag.
func (y *YinEstimator) refineLag(lag int) float64 {
	if lag <= 0 || lag >= y.maxLag {
		return float64(lag)
	}
	return float64(lag) + parabolicOffset(y.diff[lag-1], y.diff[lag], y.diff[lag+1])
}
