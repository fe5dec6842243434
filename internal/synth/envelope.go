// SPDX-License-Identifier: MIT
package synth

import "math"

// Envelope is a single-pole exponential follower shared by the whole bank.
// It chases 1 while the gate is open and 0 while it is shut, with
// independent attack and release time constants, and multiplies the bank's
// summed output so gate flips never click.
type Envelope struct {
	value       float64
	attackCoef  float64
	releaseCoef float64
	sampleRate  float64
}

// NewEnvelope creates an envelope with the given attack/release times.
func NewEnvelope(sampleRate, attackMs, releaseMs float64) *Envelope {
	e := &Envelope{sampleRate: sampleRate}
	e.SetTimes(attackMs, releaseMs)
	return e
}

// SetTimes updates the attack and release time constants (in ms).
func (e *Envelope) SetTimes(attackMs, releaseMs float64) {
	e.attackCoef = envelopeCoef(attackMs, e.sampleRate)
	e.releaseCoef = envelopeCoef(releaseMs, e.sampleRate)
}

// envelopeCoef converts a time constant in ms to a per-sample coefficient.
func envelopeCoef(ms, sampleRate float64) float64 {
	if ms <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(ms/1000*sampleRate))
}

// Next advances the envelope one sample toward the gate target and returns
// the new value in [0, 1].
func (e *Envelope) Next(gateOpen bool) float64 {
	if gateOpen {
		e.value += e.attackCoef * (1 - e.value)
	} else {
		e.value += e.releaseCoef * (0 - e.value)
	}
	return e.value
}

// Value returns the current envelope value without advancing it.
func (e *Envelope) Value() float64 {
	return e.value
}
