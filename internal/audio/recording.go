// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const recordingBitDepth = 16

// StartRecording begins capturing the rendered output to a mono WAV file.
func (s *Stream) StartRecording(filename string) error {
	if atomic.LoadInt32(&s.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	s.outputFile = file

	s.wavEncoder = wav.NewEncoder(file, int(s.cfg.SampleRate),
		recordingBitDepth, 1, 1)

	s.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  int(s.cfg.SampleRate),
		},
		SourceBitDepth: recordingBitDepth,
		Data:           make([]int, s.cfg.FramesPerBuffer),
	}

	atomic.StoreInt32(&s.isRecording, 1)

	return nil
}

// StopRecording flushes and closes the WAV file.
func (s *Stream) StopRecording() error {
	if atomic.LoadInt32(&s.isRecording) == 0 {
		return nil
	}

	atomic.StoreInt32(&s.isRecording, 0)

	if s.wavEncoder != nil {
		if err := s.wavEncoder.Close(); err != nil {
			return err
		}
		s.wavEncoder = nil
	}

	if s.outputFile != nil {
		if err := s.outputFile.Close(); err != nil {
			return err
		}
		s.outputFile = nil
	}

	return nil
}
