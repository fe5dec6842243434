// SPDX-License-Identifier: MIT
package engine

import (
	"math"

	"pitchtone/internal/config"
	"pitchtone/internal/pitch"
)

// mapReference converts a voice's stabilized detected frequency into the
// target synthesis frequency under the configured mapping mode. The
// quantize mode mutates the voice's note-commit hysteresis; mirror and
// scale modes do not use it.
func mapReference(v *pitch.VoiceState, freq float64, p *config.EngineParams) float64 {
	if freq <= 0 {
		return 0
	}

	switch p.Mode {
	case config.ModeMirror:
		return freq

	case config.ModeQuantize:
		note := int(math.Round(pitch.FrequencyToNote(freq, p.A4)))
		committed := v.ProposeNote(note)
		return pitch.NoteToFrequency(float64(committed), p.A4)

	case config.ModeScale:
		note := int(math.Round(pitch.FrequencyToNote(freq, p.A4)))
		if p.Scale == nil {
			// No scale configured: degrade to the nearest tempered
			// frequency, without hysteresis.
			return pitch.NoteToFrequency(float64(note), p.A4)
		}
		return pitch.NoteToFrequency(float64(snapToScale(note, p.Scale)), p.A4)
	}
	return freq
}

// snapToScale maps a quantized note onto the nearest member of the scale.
// The note's pitch class relative to the root is kept when it is already a
// member; otherwise the member at minimum circular semitone distance wins,
// with ties broken by whichever interval appears first in the configured
// order. The note is rebuilt in the same root-relative octave.
func snapToScale(note int, scale *config.Scale) int {
	rel := pitch.PitchClass(note - scale.Root)

	best := scale.Intervals[0]
	bestDist := 12
	for _, iv := range scale.Intervals {
		if iv == rel {
			return note
		}
		d := circularDistance(rel, iv)
		if d < bestDist {
			best = iv
			bestDist = d
		}
	}
	return note - rel + best
}

// circularDistance returns the semitone distance between two pitch classes
// on the 12-tone circle.
func circularDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return d
}
