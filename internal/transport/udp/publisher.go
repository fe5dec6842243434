// SPDX-License-Identifier: MIT
//
// Package udp streams pitch analysis results as compact binary packets, for
// consumers like visualizers or hardware controllers that want a fixed-rate
// feed without JSON parsing.
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"pitchtone/internal/config"
	"pitchtone/internal/engine"
	"pitchtone/internal/log"
)

// Publisher repacks the most recent analysis result into a binary packet at
// a fixed interval and sends it through a Sender. Reports arrive by push
// (Send), packets leave on the ticker, so the packet rate stays constant no
// matter how fast analysis runs.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	latestMu sync.Mutex
	latest   engine.AnalysisResult
	haveData bool

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan during Start/Stop

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // reusable buffer for constructing packets
}

// NewPublisher creates a Publisher. If the interval is invalid (<= 0) it
// defaults to 16ms (~60Hz).
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("invalid UDP publish interval, defaulting to %s", interval)
	}

	return &Publisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Send records an analysis result as the next packet's payload. Other report
// types are ignored. Never blocks.
func (p *Publisher) Send(data any) error {
	res, ok := data.(engine.AnalysisResult)
	if !ok {
		return nil
	}
	p.latestMu.Lock()
	p.latest = res
	p.haveData = true
	p.latestMu.Unlock()
	return nil
}

// Start launches the publishing goroutine. Safe to call once per Stop cycle;
// calling Start while running is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDP publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("UDP publisher started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publishing goroutine to terminate and waits for it.
// Safe to call multiple times.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

/*
UDP Packet Structure (BigEndian)

| Field           | Data Type | Size (Bytes) | Description                  |
|-----------------|-----------|--------------|------------------------------|
| Sequence Number | uint32    | 4            | Monotonically increasing     |
| Timestamp       | int64     | 8            | Nanoseconds since epoch      |
| Gate            | uint8     | 1            | 1 if the gate is open        |
| RMS dB          | float32   | 4            | Input level                  |
| Voice Count     | uint16    | 2            | Number of voices (V)         |
| Voices          | V * 12    |              | Per voice, in order:         |
|                 | float32   | 4            |   detected frequency (Hz)    |
|                 | float32   | 4            |   confidence [0, 1]          |
|                 | float32   | 4            |   reference frequency (Hz)   |
*/

// buildAndSendPacket packs the latest analysis result and sends it. Skipped
// when no result has arrived since the last packet.
func (p *Publisher) buildAndSendPacket() {
	p.latestMu.Lock()
	if !p.haveData {
		p.latestMu.Unlock()
		return
	}
	res := p.latest
	p.haveData = false
	p.latestMu.Unlock()

	p.sequenceNum++

	var gate uint8
	if res.GateOpen {
		gate = 1
	}
	voices := res.Voices
	if voices > config.MaxVoices {
		voices = config.MaxVoices
	}

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, res.Timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, gate)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(res.RMSDB))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(voices))
	}
	for i := 0; i < voices && err == nil; i++ {
		v := res.Pitches[i]
		err = binary.Write(p.packetBuffer, binary.BigEndian, float32(v.Frequency))
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, float32(v.Confidence))
		}
		if err == nil {
			err = binary.Write(p.packetBuffer, binary.BigEndian, float32(v.Reference))
		}
	}
	if err != nil {
		log.Errorf("error packing UDP packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		log.Debugf("sent UDP packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// Close stops the publisher. The sender is closed separately by its owner.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface {
	Send(any) error
	Close() error
} = (*Publisher)(nil)
