// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default search locations used when no config file path is given.
var defaultConfigPaths = []string{"pitchtone.yaml", "config.yaml"}

// Load builds a Config from defaults, an optional YAML file and environment
// variable overrides, in that order. A missing file at an explicit path is
// an error; missing files at the default search locations are not.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	paths := defaultConfigPaths
	if explicit {
		paths = []string{path}
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && !explicit {
				continue
			}
			if explicit {
				return nil, fmt.Errorf("failed to read config file %s: %w", p, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", p, err)
		}
		break
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies PITCHTONE_* environment variables on top of the
// loaded configuration. Malformed values are ignored; the file/default value
// stays in effect.
func applyEnvOverrides(cfg *Config) {
	if v, ok := envFloat("PITCHTONE_SAMPLE_RATE"); ok {
		cfg.SampleRate = v
	}
	if v, ok := envInt("PITCHTONE_FRAMES_PER_BUFFER"); ok {
		cfg.FramesPerBuffer = v
	}
	if v, ok := envInt("PITCHTONE_INPUT_DEVICE"); ok {
		cfg.DeviceID = v
	}
	if v, ok := envInt("PITCHTONE_OUTPUT_DEVICE"); ok {
		cfg.OutputDeviceID = v
	}
	if v := os.Getenv("PITCHTONE_ALGORITHM"); v != "" {
		cfg.Engine.Algorithm = v
	}
	if v := os.Getenv("PITCHTONE_MODE"); v != "" {
		cfg.Engine.Mode = v
	}
	if v, ok := envFloat("PITCHTONE_A4"); ok {
		cfg.Engine.A4 = v
	}
	if v := os.Getenv("PITCHTONE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PITCHTONE_WEBSOCKET_PORT"); v != "" {
		cfg.WebSocketPort = v
	}
	if v := os.Getenv("PITCHTONE_UDP_TARGET"); v != "" {
		cfg.UDPTarget = v
	}
}

func envFloat(key string) (float64, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
