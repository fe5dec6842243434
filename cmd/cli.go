// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pitchtone/internal/config"
	"pitchtone/pkg/build"
)

// rootNames maps note name spellings to pitch classes for --scale-root.
var rootNames = map[string]int{
	"c": 0, "c#": 1, "db": 1, "d": 2, "d#": 3, "eb": 3, "e": 4, "f": 5,
	"f#": 6, "gb": 6, "g": 7, "g#": 8, "ab": 8, "a": 9, "a#": 10, "bb": 10, "b": 11,
}

// ParseArgs builds the runtime configuration from defaults, an optional YAML
// file, environment overrides and command line flags, in that order. Only
// flags the user actually set override the file.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	// Flag targets. Merged into the loaded config only when set.
	flags := config.NewConfig()
	var (
		configPath string
		scaleName  string
		scaleRoot  string
	)
	options := flags

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := mergeFlags(cmd, cfg, flags); err != nil {
				return err
			}
			if err := applyScaleFlags(cmd, cfg, scaleName, scaleRoot); err != nil {
				return err
			}
			cfg.Engine.ApplyAlgorithmDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}
			cfg.TUIMode = true
			options = cfg
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
			options.TUIMode = false
		},
	}
	rootCmd.AddCommand(listCmd)

	// Audio device configuration.
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file")
	rootCmd.PersistentFlags().IntVarP(&flags.DeviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntVar(&flags.OutputDeviceID, "output-device", config.DefaultOutputDeviceID,
		"Output device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&flags.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flags.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flags.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Analysis configuration.
	rootCmd.PersistentFlags().StringVar(&flags.Engine.Algorithm, "algorithm", config.DefaultAlgorithm,
		"Pitch detection algorithm (spectral, yin)")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.MinFrequency, "min-freq", config.DefaultMinFrequency,
		"Lowest detectable frequency in Hz")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.MaxFrequency, "max-freq", config.DefaultMaxFrequency,
		"Highest detectable frequency in Hz")

	// Reference tone configuration.
	rootCmd.PersistentFlags().StringVarP(&flags.Engine.Mode, "mode", "m", config.DefaultMode,
		"Reference mapping mode (mirror, quantize, scale)")
	rootCmd.PersistentFlags().StringVarP(&flags.Engine.Waveform, "waveform", "w", config.DefaultWaveform,
		"Reference waveform (sine, triangle, sawtooth)")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.A4, "a4", config.DefaultA4,
		"Tuning reference for A4 in Hz")
	rootCmd.PersistentFlags().IntVar(&flags.Engine.Voices, "voices", config.DefaultVoices,
		"Number of reference voices (upper voices sound octaves)")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.OutputLevel, "level", config.DefaultOutputLevel,
		"Reference tone output level [0, 1]")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.Stability, "stability", config.DefaultStability,
		"Pitch smoothing amount [0, 1); higher is steadier")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.GateThresholdDB, "gate", config.DefaultGateThresholdDB,
		"Input gate threshold in dBFS")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.AttackMs, "attack", config.DefaultAttackMs,
		"Envelope attack time in milliseconds")
	rootCmd.PersistentFlags().Float64Var(&flags.Engine.ReleaseMs, "release", config.DefaultReleaseMs,
		"Envelope release time in milliseconds")
	rootCmd.PersistentFlags().BoolVar(&flags.Engine.Passthrough, "passthrough", false,
		"Mix the input signal into the output")
	rootCmd.PersistentFlags().StringVar(&scaleName, "scale", "",
		"Scale for scale mode (major, minor, major-pentatonic, minor-pentatonic, chromatic)")
	rootCmd.PersistentFlags().StringVar(&scaleRoot, "scale-root", "C",
		"Root note for --scale (C, C#, Db, ... B)")

	// Recording configuration.
	rootCmd.PersistentFlags().BoolVarP(&flags.Record, "record", "r", false,
		"Record the rendered output to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&flags.OutputFile, "output", "o", config.DefaultOutputFile,
		"Output file name. Default is pitchtone-MM-DD-YYYY-HHMMSS.wav")

	// Transport configuration.
	rootCmd.PersistentFlags().StringVar(&flags.WebSocketPort, "ws-port", config.DefaultWebSocketPort,
		"Serve analysis results over WebSocket on this port")
	rootCmd.PersistentFlags().StringVar(&flags.UDPTarget, "udp", config.DefaultUDPTarget,
		"Stream binary analysis packets to this host:port")

	// Debug configuration.
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if options.Record && options.OutputFile == "" {
		options.OutputFile = "pitchtone-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	return options, nil
}

// mergeFlags copies explicitly-set flag values over the file-loaded config.
func mergeFlags(cmd *cobra.Command, cfg, flags *config.Config) error {
	set := func(name string) bool { return cmd.Flags().Changed(name) }

	if set("device") {
		cfg.DeviceID = flags.DeviceID
	}
	if set("output-device") {
		cfg.OutputDeviceID = flags.OutputDeviceID
	}
	if set("sample-rate") {
		cfg.SampleRate = flags.SampleRate
	}
	if set("frames-per-buffer") {
		cfg.FramesPerBuffer = flags.FramesPerBuffer
	}
	if set("low-latency") {
		cfg.LowLatency = flags.LowLatency
	}
	if set("algorithm") {
		cfg.Engine.Algorithm = flags.Engine.Algorithm
	}
	if set("min-freq") {
		cfg.Engine.MinFrequency = flags.Engine.MinFrequency
	}
	if set("max-freq") {
		cfg.Engine.MaxFrequency = flags.Engine.MaxFrequency
	}
	if set("mode") {
		cfg.Engine.Mode = flags.Engine.Mode
	}
	if set("waveform") {
		cfg.Engine.Waveform = flags.Engine.Waveform
	}
	if set("a4") {
		cfg.Engine.A4 = flags.Engine.A4
	}
	if set("voices") {
		cfg.Engine.Voices = flags.Engine.Voices
	}
	if set("level") {
		cfg.Engine.OutputLevel = flags.Engine.OutputLevel
	}
	if set("stability") {
		cfg.Engine.Stability = flags.Engine.Stability
	}
	if set("gate") {
		cfg.Engine.GateThresholdDB = flags.Engine.GateThresholdDB
	}
	if set("attack") {
		cfg.Engine.AttackMs = flags.Engine.AttackMs
	}
	if set("release") {
		cfg.Engine.ReleaseMs = flags.Engine.ReleaseMs
	}
	if set("passthrough") {
		cfg.Engine.Passthrough = flags.Engine.Passthrough
	}
	if set("record") {
		cfg.Record = flags.Record
	}
	if set("output") {
		cfg.OutputFile = flags.OutputFile
	}
	if set("ws-port") {
		cfg.WebSocketPort = flags.WebSocketPort
	}
	if set("udp") {
		cfg.UDPTarget = flags.UDPTarget
	}
	if set("verbose") {
		cfg.Verbose = flags.Verbose
	}
	return nil
}

// applyScaleFlags resolves --scale/--scale-root into an engine Scale.
func applyScaleFlags(cmd *cobra.Command, cfg *config.Config, name, root string) error {
	if !cmd.Flags().Changed("scale") {
		return nil
	}

	intervals, ok := config.NamedScales[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown scale %q", name)
	}
	rootClass, ok := rootNames[strings.ToLower(root)]
	if !ok {
		return fmt.Errorf("unknown scale root %q", root)
	}

	cfg.Engine.Scale = &config.Scale{Root: rootClass, Intervals: intervals}
	cfg.Engine.Mode = config.ModeScale
	return nil
}
