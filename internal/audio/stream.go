// SPDX-License-Identifier: MIT
/*
Package audio hosts the real-time engine behind a PortAudio duplex stream:
- Mono float32 capture and playback on one callback
- Pre-allocated buffers, no allocations in the callback
- WAV recording of the rendered output with atomic state management
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"pitchtone/internal/config"
	"pitchtone/internal/engine"
	"pitchtone/internal/log"
)

// Stream owns a full-duplex PortAudio stream and drives the pitch engine
// from its callback. Input and output are mono float32.
type Stream struct {
	cfg    *config.Config
	engine *engine.Engine

	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Pre-allocated callback buffers.
	inputBuffer  []float32
	outputBuffer []float32

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer // Reusable buffer for format conversion
}

// NewStream resolves the configured devices and prepares buffers. The
// PortAudio subsystem must already be initialized.
func NewStream(cfg *config.Config, eng *engine.Engine) (*Stream, error) {
	inputDevice, err := InputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.OutputDeviceID)
	if err != nil {
		return nil, err
	}

	s := &Stream{
		cfg:          cfg,
		engine:       eng,
		inputDevice:  inputDevice,
		outputDevice: outputDevice,
		inputBuffer:  make([]float32, cfg.FramesPerBuffer),
		outputBuffer: make([]float32, cfg.FramesPerBuffer),
	}

	if cfg.LowLatency {
		s.inputLatency = inputDevice.DefaultLowInputLatency
		s.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		s.inputLatency = inputDevice.DefaultHighInputLatency
		s.outputLatency = outputDevice.DefaultHighOutputLatency
	}
	eng.SetHardwareLatency(s.inputLatency + s.outputLatency)

	return s, nil
}

// Start opens and starts the duplex stream.
func (s *Stream) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   s.inputDevice,
			Latency:  s.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   s.outputDevice,
			Latency:  s.outputLatency,
		},
		FramesPerBuffer: s.cfg.FramesPerBuffer,
		SampleRate:      s.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return fmt.Errorf("failed to open duplex stream: %w", err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		s.stream = nil
		return err
	}

	log.Infof("stream started: in=%s out=%s rate=%.0f frames=%d",
		s.inputDevice.Name, s.outputDevice.Name, s.cfg.SampleRate, s.cfg.FramesPerBuffer)

	return nil
}

// Stop stops and closes the stream.
func (s *Stream) Stop() error {
	if s.stream != nil {
		if err := s.stream.Stop(); err != nil {
			return err
		}
		if err := s.stream.Close(); err != nil {
			return err
		}
		s.stream = nil
	}
	return nil
}

// Close stops any active recording and then the stream.
func (s *Stream) Close() error {
	if atomic.LoadInt32(&s.isRecording) == 1 {
		if err := s.StopRecording(); err != nil {
			return err
		}
	}
	return s.Stop()
}

// process is the core audio callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (s *Stream) process(in, out []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(s.inputBuffer, in)
	s.engine.ProcessBlock(s.inputBuffer, s.outputBuffer)
	copy(out, s.outputBuffer)

	// Write the rendered output to the WAV file if recording.
	if atomic.LoadInt32(&s.isRecording) == 1 && s.wavEncoder != nil {
		for i, sample := range s.outputBuffer {
			s.sampleBuf.Data[i] = int(clampSample(sample) * 32767)
		}
		s.sampleBuf.Data = s.sampleBuf.Data[:len(s.outputBuffer)]

		if err := s.wavEncoder.Write(s.sampleBuf); err != nil {
			log.Errorf("error writing to WAV file: %v", err)
		}
	}
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
