// SPDX-License-Identifier: MIT
package pitch

import (
	"fmt"
	"math"
	"sort"

	"pitchtone/internal/dsp"
)

const (
	// Peak-to-noise-floor ratio treated as full confidence.
	fullConfidenceRatio = 20.0
	// Denominators smaller than this skip parabolic refinement.
	interpEpsilon = 1e-12
)

// SpectralEstimator estimates the fundamental from the magnitude spectrum
// of a windowed FFT: median noise floor inside the usable band, optional
// harmonic-product weighting to favor the fundamental over strong
// harmonics, local-maximum peak picking and parabolic bin refinement.
type SpectralEstimator struct {
	front *dsp.SpectralFrontEnd

	minFreq   float64
	maxFreq   float64
	minBin    int
	maxBin    int
	harmonics int
	floorMult float64

	work       []float64 // harmonic product spectrum
	scratch    []float64 // noise floor median scratch
	noiseFloor float64
}

// NewSpectralEstimator creates a spectral peak/harmonic-product estimator
// for the given power-of-two window size and band [minFreq, maxFreq].
// harmonics <= 1 disables harmonic-product weighting.
func NewSpectralEstimator(windowSize int, sampleRate, minFreq, maxFreq float64, harmonics int, floorMult float64) (*SpectralEstimator, error) {
	front, err := dsp.NewSpectralFrontEnd(windowSize, sampleRate)
	if err != nil {
		return nil, err
	}

	binWidth := front.BinWidth()
	minBin := int(math.Ceil(minFreq / binWidth))
	if minBin < 1 {
		minBin = 1 // skip DC
	}
	maxBin := int(maxFreq / binWidth)
	if maxBin > front.Bins()-2 {
		maxBin = front.Bins() - 2 // keep one neighbor for interpolation
	}
	if minBin >= maxBin {
		return nil, fmt.Errorf("band [%.1f, %.1f] Hz maps to empty bin range at window %d", minFreq, maxFreq, windowSize)
	}
	if floorMult <= 0 {
		floorMult = 1
	}

	return &SpectralEstimator{
		front:     front,
		minFreq:   minFreq,
		maxFreq:   maxFreq,
		minBin:    minBin,
		maxBin:    maxBin,
		harmonics: harmonics,
		floorMult: floorMult,
		work:      make([]float64, front.Bins()),
		scratch:   make([]float64, maxBin-minBin+1),
	}, nil
}

func (s *SpectralEstimator) WindowSize() int {
	return s.front.Size()
}

// Estimate runs the front end and picks the refined fundamental.
func (s *SpectralEstimator) Estimate(window []float32) RawEstimate {
	mags := s.front.Analyze(window)

	s.noiseFloor = s.medianInBand(mags)

	// Harmonic product: multiply in downsampled copies of the spectrum so a
	// fundamental supported by harmonics outscores a lone strong harmonic.
	copy(s.work, mags)
	for h := 2; h <= s.harmonics; h++ {
		for i := s.minBin; i <= s.maxBin; i++ {
			if i*h < len(mags) {
				s.work[i] *= mags[i*h]
			}
		}
	}

	// Candidates must be local maxima of the raw spectrum. The harmonic
	// product only ranks them: a bin on the leakage slope of a real peak
	// can carry a large product (the peak itself appears as one of its
	// harmonic factors) without being a peak at all.
	threshold := s.noiseFloor * s.floorMult
	best := -1
	for i := s.minBin; i <= s.maxBin; i++ {
		if mags[i] > mags[i-1] && mags[i] > mags[i+1] && mags[i] > threshold {
			if best < 0 || s.work[i] > s.work[best] {
				best = i
			}
		}
	}
	if best < 0 {
		return RawEstimate{}
	}

	freq := (float64(best) + parabolicOffset(mags[best-1], mags[best], mags[best+1])) * s.front.BinWidth()
	if !isUsableFrequency(freq, s.minFreq, s.maxFreq) {
		return RawEstimate{}
	}

	return RawEstimate{
		Frequency:  freq,
		Confidence: s.confidence(mags[best]),
	}
}

// medianInBand computes the median magnitude inside the usable band,
// used as the noise floor estimate.
func (s *SpectralEstimator) medianInBand(mags []float64) float64 {
	copy(s.scratch, mags[s.minBin:s.maxBin+1])
	sort.Float64s(s.scratch)
	return s.scratch[len(s.scratch)/2]
}

func (s *SpectralEstimator) confidence(peak float64) float64 {
	if s.noiseFloor < interpEpsilon {
		if peak > 1e-9 {
			return 1
		}
		return 0
	}
	return clamp01(peak / s.noiseFloor / fullConfidenceRatio)
}

// Magnitudes returns the most recent magnitude spectrum.
func (s *SpectralEstimator) Magnitudes() []float64 {
	return s.front.Magnitudes()
}

// FreqForBin returns the center frequency of a spectrum bin.
func (s *SpectralEstimator) FreqForBin(bin int) float64 {
	return s.front.FreqForBin(bin)
}

// NoiseFloor returns the most recent in-band noise floor estimate.
func (s *SpectralEstimator) NoiseFloor() float64 {
	return s.noiseFloor
}

// parabolicOffset refines a peak position from its three neighboring
// values. Returns 0 when the denominator is degenerate or the refined
// offset leaves the bin.
func parabolicOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if math.Abs(denom) < interpEpsilon {
		return 0
	}
	offset := 0.5 * (left - right) / denom
	if math.Abs(offset) >= 1 {
		return 0
	}
	return offset
}

func isUsableFrequency(freq, minFreq, maxFreq float64) bool {
	return !math.IsNaN(freq) && !math.IsInf(freq, 0) && freq >= minFreq && freq <= maxFreq
}
