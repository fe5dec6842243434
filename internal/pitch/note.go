// SPDX-License-Identifier: MIT
//
// Package pitch implements fundamental frequency estimation and tracking:
// equal-temperament note math, two interchangeable estimators (spectral
// peak/harmonic-product and YIN-style time domain) and a per-voice tracker
// that stabilizes raw estimates across hops.
package pitch

import (
	"fmt"
	"math"
)

// MIDI note number of A4 in equal temperament.
const a4Note = 69

var noteLetters = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteNames holds precomputed names ("A4", "C#5", ...) for note numbers
// 0..127 so the hop path never formats strings.
var noteNames [128]string

func init() {
	for n := range noteNames {
		noteNames[n] = fmt.Sprintf("%s%d", noteLetters[n%12], n/12-1)
	}
}

// NoteToFrequency converts a (possibly fractional) MIDI-like note number to
// a frequency in Hz under the given A4 tuning reference.
func NoteToFrequency(note, a4 float64) float64 {
	return a4 * math.Pow(2, (note-a4Note)/12)
}

// FrequencyToNote converts a frequency in Hz to a fractional MIDI-like note
// number under the given A4 tuning reference. Non-positive frequencies map
// to 0.
func FrequencyToNote(freq, a4 float64) float64 {
	if freq <= 0 || a4 <= 0 {
		return 0
	}
	return a4Note + 12*math.Log2(freq/a4)
}

// Cents returns the log-frequency deviation of freq from ref in cents
// (1200·log2(freq/ref)). Non-positive inputs map to 0.
func Cents(freq, ref float64) float64 {
	if freq <= 0 || ref <= 0 {
		return 0
	}
	return 1200 * math.Log2(freq/ref)
}

// NoteName returns the tempered name for an integer note number, or an
// empty string outside [0, 127].
func NoteName(note int) string {
	if note < 0 || note >= len(noteNames) {
		return ""
	}
	return noteNames[note]
}

// PitchClass returns the pitch class (0=C .. 11=B) of an integer note
// number, correct for negative inputs.
func PitchClass(note int) int {
	return ((note % 12) + 12) % 12
}
