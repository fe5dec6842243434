// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"runtime"
	"time"

	"pitchtone/cmd"
	"pitchtone/internal/audio"
	"pitchtone/internal/config"
	"pitchtone/internal/engine"
	"pitchtone/internal/log"
	"pitchtone/internal/transport"
	"pitchtone/internal/transport/udp"
	"pitchtone/internal/tui"
	"pitchtone/pkg/build"
)

// main wires the pitch engine to its host. The program flow has three
// phases:
//
// 1. Startup (cold path): build metadata, runtime settings, PortAudio,
// argument parsing and one-off commands.
//
// 2. Concurrent (hot path): the duplex stream drives the engine from the
// audio callback while the dispatcher fans reports out to the configured
// transports and the tuner UI.
//
// 3. Shutdown (cold path): stop recording, close the stream and the
// transports.
func main() {
	build.Initialize()

	// One thread for the audio callback, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		log.Fatalf("%v", err)
	}

	// One-off commands run without the engine.
	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}
	if !cfg.TUIMode {
		return
	}

	if cfg.Verbose {
		log.SetLevel(log.LevelDebug)
	} else if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(cfg *config.Config) error {
	eng, err := engine.New(cfg.Engine, cfg.SampleRate)
	if err != nil {
		return err
	}

	stream, err := audio.NewStream(cfg, eng)
	if err != nil {
		return err
	}

	dispatcher := transport.NewDispatcher()
	defer dispatcher.Close()

	if cfg.Verbose {
		dispatcher.Subscribe(transport.NewLoggingTransport())
	}

	if cfg.WebSocketPort != "" {
		dispatcher.Subscribe(transport.NewWebSocketTransport(cfg.WebSocketPort))
	}

	if cfg.UDPTarget != "" {
		sender, err := udp.NewSender(cfg.UDPTarget)
		if err != nil {
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewPublisher(16*time.Millisecond, sender)
		if err != nil {
			return err
		}
		publisher.Start()
		dispatcher.Subscribe(publisher)
	}

	sink := tui.NewSink()
	dispatcher.Subscribe(sink)

	dispatcher.Run(eng.Analysis(), eng.Debug())

	// Start of real-time processing: PortAudio begins invoking the engine
	// callback once the stream starts.
	if err := stream.Start(); err != nil {
		dispatcher.Broadcast(engine.ErrorMessage{Message: err.Error()})
		return err
	}
	defer stream.Close()

	if cfg.Record {
		if err := stream.StartRecording(cfg.OutputFile); err != nil {
			return err
		}
	}

	dispatcher.Broadcast(engine.Ready{SampleRate: cfg.SampleRate})

	// The tuner UI owns the terminal until the user quits.
	if err := tui.Run(sink, cfg.Engine, eng.PushUpdate); err != nil {
		return err
	}

	if cfg.Record {
		if err := stream.StopRecording(); err != nil {
			log.Errorf("error stopping recording: %v", err)
		} else {
			fmt.Printf("Recording saved to: %s\n", cfg.OutputFile)
		}
	}

	return nil
}
