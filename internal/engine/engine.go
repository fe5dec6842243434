// SPDX-License-Identifier: MIT
/*
Package engine implements the real-time pitch-tracking and reference-tone
synthesis core. ProcessBlock is driven synchronously by the host's audio
callback and must meet the block deadline: the per-block path never
allocates, locks or blocks. Configuration updates and analysis/debug
reports cross to the non-real-time control context through bounded
non-blocking channels, applied and emitted only at block boundaries.
*/
package engine

import (
	"fmt"
	"time"

	"pitchtone/internal/config"
	"pitchtone/internal/dsp"
	"pitchtone/internal/pitch"
	"pitchtone/internal/synth"
	"pitchtone/pkg/bitint"
)

const (
	// Analysis results go out every 4th hop, debug reports every 32nd.
	analysisEveryHops = 4
	debugEveryHops    = 32

	updateQueueDepth   = 16
	analysisQueueDepth = 16
	debugQueueDepth    = 8

	// Smoothing for the measured CPU fraction.
	cpuKeep = 0.9
	cpuMix  = 0.1
)

// Engine owns all per-voice and synthesis state for one input channel.
// It has no hidden globals: the host constructs it, holds it, and drives
// it one block at a time.
type Engine struct {
	params     config.EngineParams
	sampleRate float64

	ring      *dsp.RingBuffer
	estimator pitch.Estimator
	spectrum  pitch.SpectrumProvider // nil for estimators without one
	tracker   *pitch.Tracker
	gate      Gate
	bank      *synth.Bank
	env       *synth.Envelope

	window     []float32
	references [config.MaxVoices]float64

	hopAccum  int
	hopCount  uint64
	blockSize int

	updates  chan config.EngineUpdate
	analysis chan AnalysisResult
	debug    chan DebugReport
	dropped  uint64

	cpuFraction    float64
	extraLatencyMs float64
}

// New builds an engine for the given parameters and sample rate. The
// estimator variant, window and hop sizes are fixed for the engine's
// lifetime; everything buffered is allocated here, once.
func New(p config.EngineParams, sampleRate float64) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %.1f", sampleRate)
	}

	e := &Engine{
		params:     p,
		sampleRate: sampleRate,
		ring:       dsp.NewRingBuffer(bitint.NextPowerOfTwo(p.WindowSize + p.HopSize)),
		tracker:    pitch.NewTracker(config.MaxVoices),
		bank:       synth.NewBank(sampleRate),
		env:        synth.NewEnvelope(sampleRate, p.AttackMs, p.ReleaseMs),
		window:     make([]float32, p.WindowSize),
		updates:    make(chan config.EngineUpdate, updateQueueDepth),
		analysis:   make(chan AnalysisResult, analysisQueueDepth),
		debug:      make(chan DebugReport, debugQueueDepth),
	}

	switch p.Algorithm {
	case config.AlgorithmSpectral:
		est, err := pitch.NewSpectralEstimator(p.WindowSize, sampleRate,
			p.MinFrequency, p.MaxFrequency, p.HPSHarmonics, p.NoiseFloorMult)
		if err != nil {
			return nil, err
		}
		e.estimator = est
		e.spectrum = est
	case config.AlgorithmYin:
		est, err := pitch.NewYinEstimator(p.WindowSize, sampleRate,
			p.MinFrequency, p.MaxFrequency, p.YinThreshold)
		if err != nil {
			return nil, err
		}
		e.estimator = est
	}

	e.applySynthParams()
	return e, nil
}

// SampleRate returns the operating sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// Params returns a copy of the engine parameters as of the last block
// boundary.
func (e *Engine) Params() config.EngineParams {
	return e.params
}

// SetHardwareLatency records downstream hardware latency reported by the
// host, included in debug latency estimates. Call before streaming starts.
func (e *Engine) SetHardwareLatency(d time.Duration) {
	e.extraLatencyMs = float64(d) / float64(time.Millisecond)
}

// PushUpdate enqueues a configuration update for the next block boundary.
// It never blocks; it reports false when the queue is full.
func (e *Engine) PushUpdate(u config.EngineUpdate) bool {
	select {
	case e.updates <- u:
		return true
	default:
		return false
	}
}

// Analysis returns the outbound analysis channel. Reports arrive in hop
// order; the engine drops (never blocks) when the reader falls behind.
func (e *Engine) Analysis() <-chan AnalysisResult {
	return e.analysis
}

// Debug returns the outbound debug report channel.
func (e *Engine) Debug() <-chan DebugReport {
	return e.debug
}

// ProcessBlock is the per-block entry point, called from the real-time
// audio callback. It ingests len(in) input samples and renders len(out)
// output samples, running analysis hops as enough new input accumulates.
func (e *Engine) ProcessBlock(in, out []float32) {
	start := time.Now()

	e.applyUpdates()

	e.blockSize = len(in)
	e.ring.Write(in)
	e.gate.AccumulateBlock(in)

	e.hopAccum += len(in)
	for e.hopAccum >= e.params.HopSize {
		e.hopAccum -= e.params.HopSize
		e.runHop()
	}

	level := e.params.OutputLevel
	passthrough := e.params.Passthrough
	gateOpen := e.gate.Open()
	for i := range out {
		s := e.env.Next(gateOpen) * level * e.bank.Render()
		if passthrough && i < len(in) {
			s += float64(in[i])
		}
		out[i] = float32(s)
	}

	if block := float64(len(out)) / e.sampleRate; block > 0 {
		e.cpuFraction = cpuKeep*e.cpuFraction + cpuMix*time.Since(start).Seconds()/block
	}
}

// applyUpdates drains queued configuration updates and applies them to a
// staged copy, so an update that fails validation is discarded whole and
// the running parameters stay consistent.
func (e *Engine) applyUpdates() {
	changed := false
	for {
		select {
		case u := <-e.updates:
			staged := e.params
			u.Apply(&staged)
			if staged.Validate() == nil {
				e.params = staged
				changed = true
			}
		default:
			if changed {
				e.applySynthParams()
			}
			return
		}
	}
}

// applySynthParams pushes the updatable parameters into the synthesis
// components.
func (e *Engine) applySynthParams() {
	e.env.SetTimes(e.params.AttackMs, e.params.ReleaseMs)
	e.bank.SetWaveform(waveformOf(e.params.Waveform))
	e.bank.SetActiveVoices(e.params.Voices)
}

func waveformOf(name string) synth.Waveform {
	switch name {
	case config.WaveTriangle:
		return synth.Triangle
	case config.WaveSawtooth:
		return synth.Sawtooth
	default:
		return synth.Sine
	}
}

// runHop executes one full analysis cycle: estimate, track, gate, map and
// retarget the oscillator bank. When the ring holds less history than one
// window, the hop is skipped entirely; synthesis simply continues from the
// previous smoothed state.
func (e *Engine) runHop() {
	e.hopCount++

	var raw pitch.RawEstimate
	if e.ring.ReadLatest(e.window) {
		raw = e.estimator.Estimate(e.window)
	}

	voices := e.params.Voices
	for i := 0; i < voices; i++ {
		est := raw
		if raw.Valid() && i > 0 {
			// Upper voices track octave transpositions of the input.
			est.Frequency = raw.Frequency * float64(uint(1)<<uint(i))
		}
		e.tracker.Update(i, est, e.params.Stability, e.params.ConfidenceThreshold)
	}

	e.gate.Decide(e.tracker.Voice(0).Confidence,
		e.params.GateThresholdDB, e.params.ConfidenceThreshold)

	voiceAmp := 1 / float64(voices)
	for i := 0; i < voices; i++ {
		v := e.tracker.Voice(i)
		if v.Frequency > 0 {
			e.references[i] = mapReference(v, v.Frequency, &e.params)
			e.bank.SetTarget(i, e.references[i], voiceAmp)
		} else {
			e.references[i] = 0
			e.bank.SetTarget(i, 0, 0)
		}
	}

	if e.hopCount%analysisEveryHops == 0 {
		e.emitAnalysis()
	}
	if e.hopCount%debugEveryHops == 0 {
		e.emitDebug()
	}
}

func (e *Engine) emitAnalysis() {
	res := AnalysisResult{
		Hop:       e.hopCount,
		Voices:    e.params.Voices,
		RMS:       e.gate.RMS(),
		RMSDB:     e.gate.DB(),
		GateOpen:  e.gate.Open(),
		Timestamp: time.Now().UnixNano(),
	}
	for i := 0; i < res.Voices; i++ {
		v := e.tracker.Voice(i)
		if v.Frequency <= 0 {
			continue
		}
		note := pitch.FrequencyToNote(v.Frequency, e.params.A4)
		nearest := int(note + 0.5)
		res.Pitches[i] = DetectedPitch{
			Frequency:  v.Frequency,
			Confidence: v.Confidence,
			Note:       note,
			NoteName:   pitch.NoteName(nearest),
			Cents:      pitch.Cents(v.Frequency, pitch.NoteToFrequency(float64(nearest), e.params.A4)),
			Reference:  e.references[i],
		}
	}

	select {
	case e.analysis <- res:
	default:
		e.dropped++
	}
}

func (e *Engine) emitDebug() {
	rep := DebugReport{
		HopCount:       e.hopCount,
		CPUFraction:    e.cpuFraction,
		DroppedReports: e.dropped,
		BufferHealth:   float64(e.ring.Available()) / float64(e.ring.Capacity()),
		LatencyMs:      float64(e.blockSize+e.params.HopSize)/e.sampleRate*1000 + e.extraLatencyMs,
		Timestamp:      time.Now().UnixNano(),
	}
	if e.spectrum != nil {
		rep.NoiseFloor = e.spectrum.NoiseFloor()
		rep.PeakCount = collectTopPeaks(e.spectrum, &rep.TopPeaks)
	}

	select {
	case e.debug <- rep:
	default:
		e.dropped++
	}
}

// collectTopPeaks fills dst with the strongest local maxima of the current
// magnitude spectrum, strongest first, without allocating.
func collectTopPeaks(sp pitch.SpectrumProvider, dst *[topPeakCount]SpectralPeak) int {
	mags := sp.Magnitudes()
	count := 0
	for i := 1; i < len(mags)-1; i++ {
		if mags[i] <= mags[i-1] || mags[i] <= mags[i+1] {
			continue
		}
		peak := SpectralPeak{Frequency: sp.FreqForBin(i), Magnitude: mags[i]}

		// Insertion into the fixed-size, magnitude-ordered list.
		pos := count
		if pos == len(dst) {
			pos--
			if dst[pos].Magnitude >= peak.Magnitude {
				continue
			}
		} else {
			count++
		}
		for pos > 0 && dst[pos-1].Magnitude < peak.Magnitude {
			dst[pos] = dst[pos-1]
			pos--
		}
		dst[pos] = peak
	}
	return count
}
