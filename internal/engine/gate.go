// SPDX-License-Identifier: MIT
package engine

import "math"

const (
	// Exponential RMS smoothing weights per block.
	rmsKeep = 0.9
	rmsMix  = 0.1
	// dB floor guard against log10(0).
	rmsEpsilon = 1e-9
)

// Gate combines smoothed signal level and voice-0 confidence into a single
// shared open/closed state. It is recomputed every hop; only the Envelope
// interpolates it, so the gate itself can flip freely without clicks.
type Gate struct {
	rms  float64
	open bool
}

// AccumulateBlock folds one input block's RMS into the smoothed level.
func (g *Gate) AccumulateBlock(block []float32) {
	if len(block) == 0 {
		return
	}
	var sum float64
	for _, s := range block {
		sum += float64(s) * float64(s)
	}
	blockRMS := math.Sqrt(sum / float64(len(block)))
	g.rms = rmsKeep*g.rms + rmsMix*blockRMS
}

// Decide recomputes the gate state: open iff the smoothed level clears the
// input threshold and voice-0 confidence clears the confidence threshold.
func (g *Gate) Decide(confidence, thresholdDB, confThreshold float64) bool {
	g.open = g.DB() > thresholdDB && confidence > confThreshold
	return g.open
}

// Open returns the current gate state.
func (g *Gate) Open() bool {
	return g.open
}

// RMS returns the smoothed signal level.
func (g *Gate) RMS() float64 {
	return g.rms
}

// DB returns the smoothed level in decibels, floored near -180 dB.
func (g *Gate) DB() float64 {
	return 20 * math.Log10(math.Max(g.rms, rmsEpsilon))
}
