// SPDX-License-Identifier: MIT
package pitch

import (
	"math"
	"testing"

	"pitchtone/pkg/utils"
)

const (
	yinWindow = 2048
	yinRate   = 48000.0
)

func newYin(t testing.TB) *YinEstimator {
	t.Helper()
	est, err := NewYinEstimator(yinWindow, yinRate, 50, 2000, 0.15)
	if err != nil {
		t.Fatal(err)
	}
	return est
}

func TestYinEstimatorSine(t *testing.T) {
	est := newYin(t)

	got := est.Estimate(utils.GenerateSineWave(yinWindow, yinRate, 440))
	if math.Abs(got.Frequency-440) > 2 {
		t.Errorf("frequency = %.3f Hz, want 440 +/- 2", got.Frequency)
	}
	if got.Confidence <= 0.5 {
		t.Errorf("confidence = %.3f, want > 0.5", got.Confidence)
	}
}

func TestYinEstimatorLowNote(t *testing.T) {
	est := newYin(t)

	got := est.Estimate(utils.GenerateSineWave(yinWindow, yinRate, 110))
	if math.Abs(got.Frequency-110) > 2 {
		t.Errorf("frequency = %.3f Hz, want 110 +/- 2", got.Frequency)
	}
}

func TestYinEstimatorAvoidsOctaveDoubling(t *testing.T) {
	est := newYin(t)

	// A tone with strong harmonics has dips at the true period and at its
	// integer multiples; the walk-forward must settle on 440, not 880.
	got := est.Estimate(utils.GenerateComplexWave(yinWindow, yinRate))
	if math.Abs(got.Frequency-440) > 5 {
		t.Errorf("frequency = %.3f Hz, want fundamental 440 +/- 5", got.Frequency)
	}
}

func TestYinEstimatorSilence(t *testing.T) {
	est := newYin(t)

	got := est.Estimate(make([]float32, yinWindow))
	if got.Frequency != 0 || got.Confidence != 0 {
		t.Errorf("silence gave %+v, want zero estimate", got)
	}
}

func TestYinEstimatorBandTooLowForWindow(t *testing.T) {
	// 10 Hz needs a 4800-sample lag, far beyond a 512-sample window.
	if _, err := NewYinEstimator(512, yinRate, 10, 20, 0.15); err == nil {
		t.Error("expected error for band below the window's reach")
	}
}

func TestYinEstimatorDeterministic(t *testing.T) {
	est := newYin(t)
	window := utils.GenerateSineWave(yinWindow, yinRate, 330)

	a := est.Estimate(window)
	b := est.Estimate(window)
	if a != b {
		t.Errorf("estimates differ on identical input: %+v vs %+v", a, b)
	}
}

func TestYinEstimatorHotPath(t *testing.T) {
	est := newYin(t)
	window := utils.GenerateSineWave(yinWindow, yinRate, 440)

	est.Estimate(window) // warm-up
	allocs := testing.AllocsPerRun(20, func() {
		est.Estimate(window)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations in Estimate hot path, got %.1f", allocs)
	}
}

func BenchmarkYinEstimate(b *testing.B) {
	est := newYin(b)
	window := utils.GenerateSineWave(yinWindow, yinRate, 440)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		est.Estimate(window)
	}
}
