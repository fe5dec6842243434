// SPDX-License-Identifier: MIT
package pitch

import "math"

const (
	// Geometric confidence decay applied per hop without a valid detection.
	confidenceDecay = 0.9
	// Decayed confidence below this zeroes the smoothed frequency so a
	// stale pitch cannot linger silently.
	silenceConfidence = 0.05
	// Estimates farther than half an octave from the smoothed frequency
	// are treated as a new note instead of being blended.
	octaveJumpLimit = 0.5
	// Consecutive identical proposals required before a changed note is
	// committed (quantize-mode hysteresis).
	noteAgreementHops = 3
)

// TrackingState describes where a voice sits in its lifecycle.
type TrackingState int

const (
	StateSilent TrackingState = iota
	StateTracking
	StateDecaying
)

// VoiceState holds the per-voice smoothing and hysteresis state. It is
// created once at engine start and mutated in place every hop; there is no
// per-note churn.
type VoiceState struct {
	Frequency  float64 // smoothed frequency, 0 while silent
	Confidence float64 // smoothed confidence [0, 1]

	state         TrackingState
	proposedNote  int
	proposeCount  int
	committedNote int
}

// Reset returns the voice to silence and forgets its committed note.
func (v *VoiceState) Reset() {
	v.Frequency = 0
	v.Confidence = 0
	v.state = StateSilent
	v.proposedNote = 0
	v.proposeCount = 0
	v.committedNote = -1
}

// State returns the voice's lifecycle state.
func (v *VoiceState) State() TrackingState {
	return v.state
}

// CommittedNote returns the last committed quantized note, or -1 when no
// note has been committed since the voice last went silent.
func (v *VoiceState) CommittedNote() int {
	return v.committedNote
}

// ProposeNote feeds one quantized note proposal through the commit
// hysteresis and returns the committed note. The first proposal after
// silence commits immediately; after that a changed note must be proposed
// noteAgreementHops times in a row, with the counter reset on agreement
// with the committed note or on reversal to a different proposal.
func (v *VoiceState) ProposeNote(note int) int {
	if v.committedNote < 0 {
		v.committedNote = note
		v.proposedNote = note
		v.proposeCount = 0
		return v.committedNote
	}

	if note == v.committedNote {
		v.proposedNote = note
		v.proposeCount = 0
		return v.committedNote
	}

	if note == v.proposedNote {
		v.proposeCount++
	} else {
		v.proposedNote = note
		v.proposeCount = 1
	}

	if v.proposeCount >= noteAgreementHops {
		v.committedNote = note
		v.proposeCount = 0
	}
	return v.committedNote
}

// Tracker stabilizes raw estimates into per-voice smoothed pitches.
type Tracker struct {
	voices []VoiceState
}

// NewTracker creates a tracker with maxVoices voices, all silent.
func NewTracker(maxVoices int) *Tracker {
	t := &Tracker{voices: make([]VoiceState, maxVoices)}
	for i := range t.voices {
		t.voices[i].Reset()
	}
	return t
}

// Voice returns the state of voice i.
func (t *Tracker) Voice(i int) *VoiceState {
	return &t.voices[i]
}

// Voices returns the number of voices.
func (t *Tracker) Voices() int {
	return len(t.voices)
}

// Update feeds one raw estimate to voice i. stability is the exponential
// smoothing coefficient (0 = jump to new values, 1 = never move);
// confThreshold is the configured confidence threshold, of which half is
// enough to accept an estimate into smoothing.
func (t *Tracker) Update(i int, est RawEstimate, stability, confThreshold float64) {
	v := &t.voices[i]

	if est.Frequency > 0 && est.Confidence > confThreshold/2 {
		t.accept(v, est, stability)
		return
	}

	// Rejected: decay toward silence.
	v.Confidence *= confidenceDecay
	if v.Confidence < silenceConfidence {
		v.Reset()
		return
	}
	if v.Frequency > 0 {
		v.state = StateDecaying
	}
}

func (t *Tracker) accept(v *VoiceState, est RawEstimate, stability float64) {
	if v.Frequency <= 0 {
		v.Frequency = est.Frequency
		v.Confidence = est.Confidence
		v.state = StateTracking
		return
	}

	if math.Abs(math.Log2(est.Frequency/v.Frequency)) < octaveJumpLimit {
		v.Frequency = stability*v.Frequency + (1-stability)*est.Frequency
		v.Confidence = stability*v.Confidence + (1-stability)*est.Confidence
	} else {
		// New note: replace outright, and halve the confidence so the
		// note has to earn its stability again.
		v.Frequency = est.Frequency
		v.Confidence = est.Confidence / 2
	}
	v.state = StateTracking
}
