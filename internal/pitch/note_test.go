// SPDX-License-Identifier: MIT
package pitch

import (
	"math"
	"testing"
)

func TestNoteFrequencyRoundTrip(t *testing.T) {
	for _, a4 := range []float64{415, 432, 440, 442, 445} {
		for note := 0.0; note <= 127; note++ {
			got := FrequencyToNote(NoteToFrequency(note, a4), a4)
			if math.Abs(got-note) > 1e-6 {
				t.Fatalf("round trip note %v at a4=%.0f: got %v", note, a4, got)
			}
		}
	}
}

func TestKnownFrequencies(t *testing.T) {
	cases := []struct {
		note int
		want float64
	}{
		{69, 440},    // A4
		{57, 220},    // A3
		{81, 880},    // A5
		{60, 261.63}, // C4
	}
	for _, c := range cases {
		got := NoteToFrequency(float64(c.note), 440)
		if math.Abs(got-c.want) > 0.01 {
			t.Errorf("NoteToFrequency(%d) = %.3f, want %.2f", c.note, got, c.want)
		}
	}
}

func TestCents(t *testing.T) {
	if c := Cents(440, 440); c != 0 {
		t.Errorf("Cents(f, f) = %v, want 0", c)
	}

	semitoneUp := 440 * math.Pow(2, 1.0/12)
	if c := Cents(semitoneUp, 440); math.Abs(c-100) > 1e-9 {
		t.Errorf("Cents one semitone = %v, want 100", c)
	}
	if c := Cents(440, semitoneUp); math.Abs(c+100) > 1e-9 {
		t.Errorf("Cents one semitone down = %v, want -100", c)
	}

	if c := Cents(0, 440); c != 0 {
		t.Errorf("Cents with zero frequency = %v, want 0", c)
	}
}

func TestNoteName(t *testing.T) {
	cases := []struct {
		note int
		want string
	}{
		{69, "A4"},
		{60, "C4"},
		{61, "C#4"},
		{0, "C-1"},
		{127, "G9"},
		{-1, ""},
		{128, ""},
	}
	for _, c := range cases {
		if got := NoteName(c.note); got != c.want {
			t.Errorf("NoteName(%d) = %q, want %q", c.note, got, c.want)
		}
	}
}

func TestPitchClass(t *testing.T) {
	if pc := PitchClass(60); pc != 0 {
		t.Errorf("PitchClass(60) = %d, want 0", pc)
	}
	if pc := PitchClass(69); pc != 9 {
		t.Errorf("PitchClass(69) = %d, want 9", pc)
	}
	if pc := PitchClass(-3); pc != 9 {
		t.Errorf("PitchClass(-3) = %d, want 9", pc)
	}
}
