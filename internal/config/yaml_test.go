// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file: %v", err)
	}

	if cfg.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %.0f, want %d", cfg.SampleRate, DefaultSampleRate)
	}
	if cfg.Engine.Algorithm != AlgorithmSpectral {
		t.Errorf("Algorithm = %q, want %q", cfg.Engine.Algorithm, AlgorithmSpectral)
	}
	if cfg.Engine.WindowSize != DefaultSpectralWindowSize {
		t.Errorf("WindowSize = %d, want %d", cfg.Engine.WindowSize, DefaultSpectralWindowSize)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pitchtone.yaml")
	body := `
sample_rate: 44100
frames_per_buffer: 512
engine:
  algorithm: yin
  window_size: 2048
  hop_size: 512
  mode: scale
  a4: 442
  scale:
    root: 0
    intervals: [0, 2, 4, 5, 7, 9, 11]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %.0f, want 44100", cfg.SampleRate)
	}
	if cfg.Engine.Algorithm != AlgorithmYin {
		t.Errorf("Algorithm = %q, want yin", cfg.Engine.Algorithm)
	}
	if cfg.Engine.A4 != 442 {
		t.Errorf("A4 = %.1f, want 442", cfg.Engine.A4)
	}
	if cfg.Engine.Scale == nil || len(cfg.Engine.Scale.Intervals) != 7 {
		t.Errorf("Scale not loaded: %+v", cfg.Engine.Scale)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PITCHTONE_A4", "432")
	t.Setenv("PITCHTONE_MODE", "mirror")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.A4 != 432 {
		t.Errorf("A4 = %.1f, want 432", cfg.Engine.A4)
	}
	if cfg.Engine.Mode != ModeMirror {
		t.Errorf("Mode = %q, want mirror", cfg.Engine.Mode)
	}
}

func TestValidateRejectsBadParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad sample rate", func(c *Config) { c.SampleRate = 1000 }},
		{"bad window", func(c *Config) { c.Engine.WindowSize = 1000 }},
		{"bad hop", func(c *Config) { c.Engine.HopSize = 0 }},
		{"bad a4", func(c *Config) { c.Engine.A4 = 500 }},
		{"bad voices", func(c *Config) { c.Engine.Voices = 4 }},
		{"bad mode", func(c *Config) { c.Engine.Mode = "polyphonic" }},
		{"bad scale root", func(c *Config) { c.Engine.Scale = &Scale{Root: 12, Intervals: []int{0}} }},
		{"empty scale", func(c *Config) { c.Engine.Scale = &Scale{Root: 0} }},
		{"inverted band", func(c *Config) { c.Engine.MinFrequency = 2000; c.Engine.MaxFrequency = 50 }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := NewConfig()
			c.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEngineUpdateApply(t *testing.T) {
	p := NewEngineParams()

	mode := ModeScale
	a4 := 442.0
	voices := 2
	u := EngineUpdate{
		Mode:   &mode,
		A4:     &a4,
		Voices: &voices,
		Scale:  &Scale{Root: 2, Intervals: []int{0, 2, 4}},
	}
	u.Apply(&p)

	if p.Mode != ModeScale || p.A4 != 442 || p.Voices != 2 || p.Scale == nil {
		t.Errorf("update not applied: %+v", p)
	}
	if p.Waveform != DefaultWaveform {
		t.Errorf("untouched field changed: %q", p.Waveform)
	}

	EngineUpdate{ClearScale: true}.Apply(&p)
	if p.Scale != nil {
		t.Error("ClearScale did not remove the scale")
	}
}

func TestApplyAlgorithmDefaults(t *testing.T) {
	p := NewEngineParams()
	p.Algorithm = AlgorithmYin
	p.ApplyAlgorithmDefaults()

	if p.WindowSize != DefaultYinWindowSize || p.HopSize != DefaultYinHopSize {
		t.Errorf("yin defaults not applied: window=%d hop=%d", p.WindowSize, p.HopSize)
	}

	// Explicit overrides survive.
	p = NewEngineParams()
	p.Algorithm = AlgorithmYin
	p.WindowSize = 8192
	p.ApplyAlgorithmDefaults()
	if p.WindowSize != 8192 {
		t.Errorf("explicit window size overridden: %d", p.WindowSize)
	}
}
