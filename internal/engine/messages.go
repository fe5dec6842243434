// SPDX-License-Identifier: MIT
package engine

import "pitchtone/internal/config"

// DetectedPitch is one voice's stabilized detection, derived fresh each
// hop and never mutated afterward.
type DetectedPitch struct {
	Frequency  float64 `json:"frequency"`  // smoothed detected frequency, Hz
	Confidence float64 `json:"confidence"` // smoothed confidence [0, 1]
	Note       float64 `json:"note"`       // fractional MIDI-like note number
	NoteName   string  `json:"note_name"`  // nearest tempered note name
	Cents      float64 `json:"cents"`      // deviation from the nearest tempered note
	Reference  float64 `json:"reference"`  // synthesized reference frequency, Hz
}

// AnalysisResult is the per-hop snapshot emitted to the host at a
// throttled cadence, in hop order.
type AnalysisResult struct {
	Hop       uint64                           `json:"hop"`
	Pitches   [config.MaxVoices]DetectedPitch  `json:"pitches"`
	Voices    int                              `json:"voices"`
	RMS       float64                          `json:"rms"`
	RMSDB     float64                          `json:"rms_db"`
	GateOpen  bool                             `json:"gate_open"`
	Timestamp int64                            `json:"timestamp"` // ns since epoch
}

// SpectralPeak is one entry of the debug report's top-peak list.
type SpectralPeak struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// topPeakCount is the number of spectral peaks reported for debugging.
const topPeakCount = 5

// DebugReport carries engine health metrics, emitted less often than
// analysis results.
type DebugReport struct {
	HopCount       uint64                      `json:"hop_count"`
	CPUFraction    float64                     `json:"cpu_fraction"`    // block time / block duration, smoothed
	DroppedReports uint64                      `json:"dropped_reports"` // reports lost to full channels
	BufferHealth   float64                     `json:"buffer_health"`   // ring fill fraction [0, 1]
	TopPeaks       [topPeakCount]SpectralPeak  `json:"top_peaks"`
	PeakCount      int                         `json:"peak_count"`
	NoiseFloor     float64                     `json:"noise_floor"`
	LatencyMs      float64                     `json:"latency_ms"` // block + hop in time, plus host hardware latency
	Timestamp      int64                       `json:"timestamp"`
}

// Ready is sent once by the host when the engine starts processing.
type Ready struct {
	SampleRate float64 `json:"sample_rate"`
}

// ErrorMessage surfaces an unrecoverable host-side fault to observers.
type ErrorMessage struct {
	Message string `json:"message"`
}
