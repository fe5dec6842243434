// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"pitchtone/pkg/bitint"
)

// SpectralFrontEnd applies a Hann window and a forward real FFT to an
// analysis window, producing a magnitude spectrum of size/2+1 bins. All
// buffers are owned once and reused; Analyze performs no allocation.
type SpectralFrontEnd struct {
	size       int
	sampleRate float64
	fft        *fourier.FFT

	window    []float64
	input     []float64
	coeffs    []complex128
	magnitude []float64
}

// NewSpectralFrontEnd creates a front end for power-of-two analysis windows.
func NewSpectralFrontEnd(size int, sampleRate float64) (*SpectralFrontEnd, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("analysis window size %d is not a power of two", size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %.1f", sampleRate)
	}

	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}

	bins := size/2 + 1
	return &SpectralFrontEnd{
		size:       size,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(size),
		window:     window,
		input:      make([]float64, size),
		coeffs:     make([]complex128, bins),
		magnitude:  make([]float64, bins),
	}, nil
}

// Analyze windows samples, runs the forward transform and returns the
// magnitude spectrum. The returned slice is owned by the front end and is
// overwritten by the next call. len(samples) must equal Size().
func (s *SpectralFrontEnd) Analyze(samples []float32) []float64 {
	for i := range s.input {
		if i < len(samples) {
			s.input[i] = float64(samples[i]) * s.window[i]
		} else {
			s.input[i] = 0
		}
	}

	s.fft.Coefficients(s.coeffs, s.input)
	for i := range s.coeffs {
		s.magnitude[i] = cmplx.Abs(s.coeffs[i])
	}
	return s.magnitude
}

// Magnitudes returns the most recently computed magnitude spectrum.
func (s *SpectralFrontEnd) Magnitudes() []float64 {
	return s.magnitude
}

// Size returns the analysis window length in samples.
func (s *SpectralFrontEnd) Size() int {
	return s.size
}

// Bins returns the number of magnitude bins (size/2+1).
func (s *SpectralFrontEnd) Bins() int {
	return len(s.magnitude)
}

// BinWidth returns the frequency width of one bin in Hz.
func (s *SpectralFrontEnd) BinWidth() float64 {
	return s.sampleRate / float64(s.size)
}

// FreqForBin returns the center frequency in Hz for a bin index, or 0 for
// out-of-range indices.
func (s *SpectralFrontEnd) FreqForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.magnitude) {
		return 0
	}
	return float64(bin) * s.BinWidth()
}
