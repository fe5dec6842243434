// SPDX-License-Identifier: MIT
//
// Package synth renders the reference tone: a small bank of band-limited
// oscillators with per-sample parameter smoothing, gated by a shared
// attack/release envelope. Everything runs per sample on the real-time
// path and never allocates.
package synth

import "math"

// Waveform kinds.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Sawtooth
)

const (
	// MaxVoices is the size of the oscillator bank.
	MaxVoices = 3
	// Harmonic count cap for additive triangle/sawtooth rendering.
	maxHarmonics = 24
	// Amplitudes below this render as silence, skipping harmonic sums.
	amplitudeFloor = 1e-4
	// Per-sample smoothing time constants. Fast enough to avoid zipper
	// noise, slow enough to avoid clicks.
	freqSmoothMs = 4.0
	ampSmoothMs  = 6.0
)

// voice is one oscillator's state: phase in [0,1) plus current and target
// frequency/amplitude pairs smoothed exponentially per sample.
type voice struct {
	phase      float64
	freq       float64
	targetFreq float64
	amp        float64
	targetAmp  float64
}

// Bank is a fixed bank of up to MaxVoices oscillators sharing one waveform.
type Bank struct {
	sampleRate float64
	waveform   Waveform
	voices     [MaxVoices]voice
	active     int

	freqCoef float64
	ampCoef  float64
}

// NewBank creates an oscillator bank at the given sample rate.
func NewBank(sampleRate float64) *Bank {
	return &Bank{
		sampleRate: sampleRate,
		active:     1,
		freqCoef:   smoothingCoef(freqSmoothMs, sampleRate),
		ampCoef:    smoothingCoef(ampSmoothMs, sampleRate),
	}
}

func smoothingCoef(ms, sampleRate float64) float64 {
	return 1 - math.Exp(-1/(ms/1000*sampleRate))
}

// SetWaveform switches the waveform for all voices.
func (b *Bank) SetWaveform(w Waveform) {
	b.waveform = w
}

// SetActiveVoices bounds how many voices render, clamped to [1, MaxVoices].
// Deactivated voices fade out through their amplitude ramp.
func (b *Bank) SetActiveVoices(n int) {
	if n < 1 {
		n = 1
	}
	if n > MaxVoices {
		n = MaxVoices
	}
	for i := n; i < b.active; i++ {
		b.voices[i].targetAmp = 0
	}
	b.active = n
}

// SetTarget retargets voice i. A zero or negative frequency fades the voice
// out while keeping its last frequency so the fade stays in tune.
func (b *Bank) SetTarget(i int, freq, amp float64) {
	if i < 0 || i >= MaxVoices {
		return
	}
	v := &b.voices[i]
	if freq > 0 {
		v.targetFreq = freq
		if v.freq <= 0 {
			v.freq = freq // jump, don't glide up from zero
		}
		v.targetAmp = amp
	} else {
		v.targetAmp = 0
	}
}

// Render produces one summed sample, advancing every voice's smoothing
// ramps and phase. Deactivated voices keep ramping so they fade out
// instead of cutting off.
func (b *Bank) Render() float64 {
	var sum float64
	for i := 0; i < MaxVoices; i++ {
		v := &b.voices[i]

		v.freq += b.freqCoef * (v.targetFreq - v.freq)
		v.amp += b.ampCoef * (v.targetAmp - v.amp)

		if v.freq <= 0 {
			continue
		}
		v.phase += v.freq / b.sampleRate
		v.phase -= math.Floor(v.phase)

		if v.amp < amplitudeFloor {
			continue
		}
		sum += v.amp * b.waveSample(v.phase, v.freq)
	}
	return sum
}

// waveSample evaluates the configured waveform at the given phase,
// band-limiting triangle and sawtooth so no harmonic crosses Nyquist.
func (b *Bank) waveSample(phase, freq float64) float64 {
	switch b.waveform {
	case Triangle:
		return b.triangleSample(phase, freq)
	case Sawtooth:
		return b.sawtoothSample(phase, freq)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// harmonicCap returns the highest harmonic of freq below Nyquist, bounded
// by maxHarmonics.
func (b *Bank) harmonicCap(freq float64) int {
	n := int(b.sampleRate / (2 * freq))
	if n > maxHarmonics {
		n = maxHarmonics
	}
	return n
}

// triangleSample sums odd harmonics with alternating sign and 1/n² falloff.
func (b *Bank) triangleSample(phase, freq float64) float64 {
	limit := b.harmonicCap(freq)
	var sum float64
	sign := 1.0
	for n := 1; n <= limit; n += 2 {
		sum += sign * math.Sin(2*math.Pi*float64(n)*phase) / float64(n*n)
		sign = -sign
	}
	return sum * 8 / (math.Pi * math.Pi)
}

// sawtoothSample sums all harmonics with 1/n falloff.
func (b *Bank) sawtoothSample(phase, freq float64) float64 {
	limit := b.harmonicCap(freq)
	var sum float64
	sign := 1.0
	for n := 1; n <= limit; n++ {
		sum += sign * math.Sin(2*math.Pi*float64(n)*phase) / float64(n)
		sign = -sign
	}
	return sum * 2 / math.Pi
}

// HighestHarmonic reports the top harmonic frequency that would render for
// a fundamental, for Nyquist safety checks.
func (b *Bank) HighestHarmonic(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	return freq * float64(b.harmonicCap(freq))
}
