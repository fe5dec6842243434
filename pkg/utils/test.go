// SPDX-License-Identifier: MIT
//
// Package utils provides shared test helpers: deterministic signal
// generators and a transport stub. It is imported from _test.go files only.
package utils

import "math"

// MockTransport implements the transport.Transport interface for tests,
// recording every payload it is asked to send.
type MockTransport struct {
	Sent []any
}

func (m *MockTransport) Send(data any) error {
	m.Sent = append(m.Sent, data)
	return nil
}

func (m *MockTransport) Close() error { return nil }

// GenerateSineWave returns size samples of a pure sinusoid at the given
// frequency, peak amplitude 0.9.
func GenerateSineWave(size int, sampleRate, frequency float64) []float32 {
	buf := make([]float32, size)
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = float32(0.9 * math.Sin(2*math.Pi*frequency*t))
	}
	return buf
}

// GenerateComplexWave returns a 440 Hz fundamental with strong second and
// third harmonics, a useful stand-in for a sung or bowed tone.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buf := make([]float32, size)
	for i := range buf {
		t := float64(i) / sampleRate
		s := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buf[i] = float32(s * 0.9)
	}
	return buf
}

// FindPeakBin returns the index of the largest magnitude in [startBin,
// endBin], clamped to the slice bounds.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peak := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peak] {
			peak = bin
		}
	}
	return peak
}
