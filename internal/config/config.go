// SPDX-License-Identifier: MIT
//
// Package config defines the runtime configuration for the pitch engine and
// its host. Host settings (device, sample rate, transports) are fixed for
// the lifetime of a stream; EngineParams may additionally be updated while
// the stream runs via typed partial updates applied at block boundaries.
package config

import (
	"fmt"

	"pitchtone/pkg/bitint"
)

// Reference mapping modes.
const (
	ModeMirror   = "mirror"   // reference follows the detected frequency
	ModeQuantize = "quantize" // reference snaps to the nearest tempered note
	ModeScale    = "scale"    // reference snaps to the nearest scale member
)

// Waveform kinds for the reference oscillators.
const (
	WaveSine     = "sine"
	WaveTriangle = "triangle"
	WaveSawtooth = "sawtooth"
)

// Pitch estimation algorithms.
const (
	AlgorithmSpectral = "spectral" // FFT peak picking with harmonic product
	AlgorithmYin      = "yin"      // time-domain difference function
)

const (
	// Host defaults.
	DefaultDeviceID        = MinDeviceID
	DefaultOutputDeviceID  = MinDeviceID
	DefaultSampleRate      = 48000
	DefaultFramesPerBuffer = 256
	DefaultLowLatency      = true
	DefaultWebSocketPort   = ""
	DefaultUDPTarget       = ""
	DefaultOutputFile      = ""

	// Engine defaults. The spectral and YIN front ends run with different
	// window/hop sizes; both sets are reconciled here so either algorithm
	// can be selected at construction with sane behavior.
	DefaultAlgorithm           = AlgorithmSpectral
	DefaultSpectralWindowSize  = 4096
	DefaultSpectralHopSize     = 1024
	DefaultYinWindowSize       = 2048
	DefaultYinHopSize          = 512
	DefaultMinFrequency        = 50.0
	DefaultMaxFrequency        = 2000.0
	DefaultMode                = ModeQuantize
	DefaultWaveform            = WaveSine
	DefaultA4                  = 440.0
	DefaultVoices              = 1
	DefaultOutputLevel         = 0.5
	DefaultStability           = 0.35
	DefaultGateThresholdDB     = -45.0
	DefaultConfidenceThreshold = 0.6
	DefaultAttackMs            = 10.0
	DefaultReleaseMs           = 120.0
	DefaultHPSHarmonics        = 3
	DefaultNoiseFloorMult      = 4.0
	DefaultYinThreshold        = 0.15

	// Hardware and processing limits.
	MinDeviceID     = -1 // system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
	MaxVoices       = 3
	MinA4           = 415.0
	MaxA4           = 445.0
)

// Scale describes a musical scale as a root pitch class (0=C .. 11=B) and
// an ordered set of semitone offsets from that root. Interval order matters:
// equidistant snapping ties are broken by the first matching interval.
type Scale struct {
	Root      int   `yaml:"root"`
	Intervals []int `yaml:"intervals"`
}

// NamedScales maps CLI/YAML scale names to interval sets.
var NamedScales = map[string][]int{
	"major":            {0, 2, 4, 5, 7, 9, 11},
	"minor":            {0, 2, 3, 5, 7, 8, 10},
	"major-pentatonic": {0, 2, 4, 7, 9},
	"minor-pentatonic": {0, 3, 5, 7, 10},
	"chromatic":        {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
}

// EngineParams is the per-block configuration snapshot owned by the engine.
// The analysis fields (Algorithm, WindowSize, HopSize, frequency band and
// estimator tuning) are structural and fixed at engine construction; the
// remaining fields may change at block boundaries via EngineUpdate.
type EngineParams struct {
	// Structural analysis settings.
	Algorithm      string  `yaml:"algorithm"`
	WindowSize     int     `yaml:"window_size"`
	HopSize        int     `yaml:"hop_size"`
	MinFrequency   float64 `yaml:"min_frequency"`
	MaxFrequency   float64 `yaml:"max_frequency"`
	HPSHarmonics   int     `yaml:"hps_harmonics"`
	NoiseFloorMult float64 `yaml:"noise_floor_multiplier"`
	YinThreshold   float64 `yaml:"yin_threshold"`

	// Live-updatable synthesis and tracking settings.
	Mode                string  `yaml:"mode"`
	A4                  float64 `yaml:"a4"`
	Waveform            string  `yaml:"waveform"`
	Voices              int     `yaml:"voices"`
	OutputLevel         float64 `yaml:"output_level"`
	Stability           float64 `yaml:"stability"`
	GateThresholdDB     float64 `yaml:"gate_threshold_db"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	AttackMs            float64 `yaml:"attack_ms"`
	ReleaseMs           float64 `yaml:"release_ms"`
	Scale               *Scale  `yaml:"scale,omitempty"`
	Passthrough         bool    `yaml:"passthrough"`
}

// EngineUpdate is a typed partial update for the live-updatable fields of
// EngineParams. Nil fields are left untouched. Updates are merged by the
// engine atomically between audio blocks, never mid-block.
type EngineUpdate struct {
	Mode                *string
	A4                  *float64
	Waveform            *string
	Voices              *int
	OutputLevel         *float64
	Stability           *float64
	GateThresholdDB     *float64
	ConfidenceThreshold *float64
	AttackMs            *float64
	ReleaseMs           *float64
	Scale               *Scale
	ClearScale          bool
	Passthrough         *bool
}

// Apply merges u into p field by field.
func (u EngineUpdate) Apply(p *EngineParams) {
	if u.Mode != nil {
		p.Mode = *u.Mode
	}
	if u.A4 != nil {
		p.A4 = *u.A4
	}
	if u.Waveform != nil {
		p.Waveform = *u.Waveform
	}
	if u.Voices != nil {
		p.Voices = *u.Voices
	}
	if u.OutputLevel != nil {
		p.OutputLevel = *u.OutputLevel
	}
	if u.Stability != nil {
		p.Stability = *u.Stability
	}
	if u.GateThresholdDB != nil {
		p.GateThresholdDB = *u.GateThresholdDB
	}
	if u.ConfidenceThreshold != nil {
		p.ConfidenceThreshold = *u.ConfidenceThreshold
	}
	if u.AttackMs != nil {
		p.AttackMs = *u.AttackMs
	}
	if u.ReleaseMs != nil {
		p.ReleaseMs = *u.ReleaseMs
	}
	if u.Scale != nil {
		p.Scale = u.Scale
	}
	if u.ClearScale {
		p.Scale = nil
	}
	if u.Passthrough != nil {
		p.Passthrough = *u.Passthrough
	}
}

// Config holds all runtime configuration for the host and engine. It is
// built from defaults, an optional YAML file, and command line flags.
type Config struct {
	// Audio device settings.
	DeviceID        int     `yaml:"input_device"`
	OutputDeviceID  int     `yaml:"output_device"`
	SampleRate      float64 `yaml:"sample_rate"`
	FramesPerBuffer int     `yaml:"frames_per_buffer"`
	LowLatency      bool    `yaml:"low_latency"`

	// Engine settings.
	Engine EngineParams `yaml:"engine"`

	// Session recording of the rendered output.
	Record     bool   `yaml:"record"`
	OutputFile string `yaml:"output_file"`

	// Transports for analysis/debug reports.
	WebSocketPort string `yaml:"websocket_port"`
	UDPTarget     string `yaml:"udp_target"`

	// Runtime behavior.
	LogLevel string `yaml:"log_level"`
	Verbose  bool   `yaml:"verbose"`
	Command  string `yaml:"-"`
	TUIMode  bool   `yaml:"-"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		DeviceID:        DefaultDeviceID,
		OutputDeviceID:  DefaultOutputDeviceID,
		SampleRate:      DefaultSampleRate,
		FramesPerBuffer: DefaultFramesPerBuffer,
		LowLatency:      DefaultLowLatency,
		Engine:          NewEngineParams(),
		OutputFile:      DefaultOutputFile,
		WebSocketPort:   DefaultWebSocketPort,
		UDPTarget:       DefaultUDPTarget,
		LogLevel:        "info",
	}
}

// NewEngineParams returns engine parameters populated with defaults for the
// default (spectral) algorithm.
func NewEngineParams() EngineParams {
	return EngineParams{
		Algorithm:           DefaultAlgorithm,
		WindowSize:          DefaultSpectralWindowSize,
		HopSize:             DefaultSpectralHopSize,
		MinFrequency:        DefaultMinFrequency,
		MaxFrequency:        DefaultMaxFrequency,
		HPSHarmonics:        DefaultHPSHarmonics,
		NoiseFloorMult:      DefaultNoiseFloorMult,
		YinThreshold:        DefaultYinThreshold,
		Mode:                DefaultMode,
		A4:                  DefaultA4,
		Waveform:            DefaultWaveform,
		Voices:              DefaultVoices,
		OutputLevel:         DefaultOutputLevel,
		Stability:           DefaultStability,
		GateThresholdDB:     DefaultGateThresholdDB,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		AttackMs:            DefaultAttackMs,
		ReleaseMs:           DefaultReleaseMs,
	}
}

// ApplyAlgorithmDefaults swaps in the window/hop sizes tuned for the chosen
// algorithm, unless the caller already overrode them.
func (p *EngineParams) ApplyAlgorithmDefaults() {
	switch p.Algorithm {
	case AlgorithmYin:
		if p.WindowSize == DefaultSpectralWindowSize {
			p.WindowSize = DefaultYinWindowSize
		}
		if p.HopSize == DefaultSpectralHopSize {
			p.HopSize = DefaultYinHopSize
		}
	}
}

// Validate checks the configuration against the supported ranges.
func (c *Config) Validate() error {
	if c.SampleRate < MinSampleRate || c.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample rate %.0f out of range [%d, %d]", c.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.FramesPerBuffer <= 0 || c.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("frames per buffer %d out of range (0, %d]", c.FramesPerBuffer, MaxBufferFrames)
	}
	return c.Engine.Validate()
}

// Validate checks the engine parameters against the supported ranges.
func (p *EngineParams) Validate() error {
	switch p.Algorithm {
	case AlgorithmSpectral, AlgorithmYin:
	default:
		return fmt.Errorf("unknown algorithm %q", p.Algorithm)
	}
	switch p.Mode {
	case ModeMirror, ModeQuantize, ModeScale:
	default:
		return fmt.Errorf("unknown mode %q", p.Mode)
	}
	switch p.Waveform {
	case WaveSine, WaveTriangle, WaveSawtooth:
	default:
		return fmt.Errorf("unknown waveform %q", p.Waveform)
	}
	if !bitint.IsPowerOfTwo(p.WindowSize) {
		return fmt.Errorf("window size %d is not a power of two", p.WindowSize)
	}
	if p.HopSize <= 0 || p.HopSize > p.WindowSize {
		return fmt.Errorf("hop size %d out of range (0, %d]", p.HopSize, p.WindowSize)
	}
	if p.A4 < MinA4 || p.A4 > MaxA4 {
		return fmt.Errorf("tuning reference %.1f Hz out of range [%.0f, %.0f]", p.A4, MinA4, MaxA4)
	}
	if p.Voices < 1 || p.Voices > MaxVoices {
		return fmt.Errorf("voice count %d out of range [1, %d]", p.Voices, MaxVoices)
	}
	if p.MinFrequency <= 0 || p.MaxFrequency <= p.MinFrequency {
		return fmt.Errorf("invalid frequency band [%.1f, %.1f]", p.MinFrequency, p.MaxFrequency)
	}
	if p.Scale != nil {
		if p.Scale.Root < 0 || p.Scale.Root > 11 {
			return fmt.Errorf("scale root %d out of range [0, 11]", p.Scale.Root)
		}
		if len(p.Scale.Intervals) == 0 {
			return fmt.Errorf("scale has no intervals")
		}
		for _, iv := range p.Scale.Intervals {
			if iv < 0 || iv > 11 {
				return fmt.Errorf("scale interval %d out of range [0, 11]", iv)
			}
		}
	}
	return nil
}
