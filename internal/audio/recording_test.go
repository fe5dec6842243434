// SPDX-License-Identifier: MIT
package audio

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"pitchtone/internal/config"
)

const (
	testSampleRate = 48000.0
	testFrameSize  = 256
)

func newTestStream() *Stream {
	return &Stream{
		cfg: &config.Config{
			SampleRate:      testSampleRate,
			FramesPerBuffer: testFrameSize,
		},
		inputBuffer:  make([]float32, testFrameSize),
		outputBuffer: make([]float32, testFrameSize),
	}
}

func TestRecordingStartStop(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "take.wav")
	s := newTestStream()

	if err := s.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	if atomic.LoadInt32(&s.isRecording) != 1 {
		t.Error("Stream should be in recording state")
	}
	if s.outputFile == nil || s.wavEncoder == nil || s.sampleBuf == nil {
		t.Fatal("Recording state not fully initialized")
	}
	if s.sampleBuf.Format.NumChannels != 1 {
		t.Errorf("Buffer channels: got %d, want mono", s.sampleBuf.Format.NumChannels)
	}
	if s.sampleBuf.Format.SampleRate != int(testSampleRate) {
		t.Errorf("Buffer sample rate: got %d, want %d",
			s.sampleBuf.Format.SampleRate, int(testSampleRate))
	}
	if len(s.sampleBuf.Data) != testFrameSize {
		t.Errorf("Buffer size: got %d, want %d", len(s.sampleBuf.Data), testFrameSize)
	}

	outputFile := s.outputFile

	if err := s.StopRecording(); err != nil {
		t.Fatalf("Failed to stop recording: %v", err)
	}

	if atomic.LoadInt32(&s.isRecording) != 0 {
		t.Error("Stream should not be in recording state after stopping")
	}
	if s.outputFile != nil || s.wavEncoder != nil {
		t.Error("Recording state should be cleared after stopping")
	}
	if err := outputFile.Close(); err == nil {
		t.Error("File should already be closed")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Error("Recording file was not created")
	}
}

func TestRecordingErrorCases(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		desc          string
		filename      string
		isRecording   int32
		expectError   bool
		errorContains string
	}{
		{"Already recording", "valid.wav", 1, true, "already recording"},
		{"Invalid path", "/nonexistent/path/file.wav", 0, true, ""},
		{"Valid path", "take.wav", 0, false, ""},
		{"Stop when not recording", "", 0, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			var err error
			s := newTestStream()

			atomic.StoreInt32(&s.isRecording, tt.isRecording)

			if tt.desc == "Stop when not recording" {
				err = s.StopRecording()
			} else {
				filename := tt.filename
				if !tt.expectError {
					filename = filepath.Join(dir, tt.filename)
				}

				err = s.StartRecording(filename)
				if err == nil {
					_ = s.StopRecording()
				}
			}

			if tt.expectError && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if tt.errorContains != "" && err != nil {
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Error %q does not contain %q", err.Error(), tt.errorContains)
				}
			}
		})
	}
}

func TestCloseStopsRecording(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "take.wav")
	s := newTestStream()

	if err := s.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close stream: %v", err)
	}

	if atomic.LoadInt32(&s.isRecording) != 0 {
		t.Error("Stream should not be in recording state after Close()")
	}
	if s.outputFile != nil || s.wavEncoder != nil {
		t.Error("Recording state should be cleared after Close()")
	}
}

func TestRecordingConversionNoAllocs(t *testing.T) {
	s := newTestStream()

	filename := filepath.Join(t.TempDir(), "take.wav")
	if err := s.StartRecording(filename); err != nil {
		t.Fatalf("Failed to start recording: %v", err)
	}
	defer s.StopRecording()

	for i := range s.outputBuffer {
		s.outputBuffer[i] = float32(i%64)/32 - 1
	}

	allocs := testing.AllocsPerRun(100, func() {
		if atomic.LoadInt32(&s.isRecording) == 1 && s.sampleBuf != nil {
			for i, sample := range s.outputBuffer {
				s.sampleBuf.Data[i] = int(clampSample(sample) * 32767)
			}
			s.sampleBuf.Data = s.sampleBuf.Data[:len(s.outputBuffer)]
		}
	})

	if allocs > 0 {
		t.Errorf("Recording conversion allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func TestClampSample(t *testing.T) {
	cases := []struct{ in, want float32 }{
		{0, 0},
		{0.5, 0.5},
		{1.5, 1},
		{-1.5, -1},
	}
	for _, c := range cases {
		if got := clampSample(c.in); got != c.want {
			t.Errorf("clampSample(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
