// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"math"
	"net"
	"testing"
	"time"

	"pitchtone/internal/engine"
)

func newLoopbackPair(t *testing.T) (*net.UDPConn, *Sender) {
	t.Helper()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { sender.Close() })

	return listener, sender
}

func TestPublisherPacketLayout(t *testing.T) {
	listener, sender := newLoopbackPair(t)

	p, err := NewPublisher(time.Millisecond, sender)
	if err != nil {
		t.Fatal(err)
	}

	res := engine.AnalysisResult{
		Hop:       12,
		Voices:    2,
		RMSDB:     -12.5,
		GateOpen:  true,
		Timestamp: time.Now().UnixNano(),
	}
	res.Pitches[0] = engine.DetectedPitch{Frequency: 220.5, Confidence: 0.9, Reference: 220}
	res.Pitches[1] = engine.DetectedPitch{Frequency: 441, Confidence: 0.8, Reference: 440}

	p.Send(res)
	p.buildAndSendPacket()

	buf := make([]byte, 1500)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	wantLen := 4 + 8 + 1 + 4 + 2 + 2*12
	if n != wantLen {
		t.Fatalf("packet length %d, want %d", n, wantLen)
	}

	r := bytes.NewReader(buf[:n])
	var (
		seq    uint32
		ts     int64
		gate   uint8
		rmsDB  float32
		voices uint16
	)
	binary.Read(r, binary.BigEndian, &seq)
	binary.Read(r, binary.BigEndian, &ts)
	binary.Read(r, binary.BigEndian, &gate)
	binary.Read(r, binary.BigEndian, &rmsDB)
	binary.Read(r, binary.BigEndian, &voices)

	if seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}
	if ts != res.Timestamp {
		t.Errorf("timestamp = %d, want %d", ts, res.Timestamp)
	}
	if gate != 1 {
		t.Errorf("gate = %d, want 1", gate)
	}
	if math.Abs(float64(rmsDB)+12.5) > 1e-5 {
		t.Errorf("rms = %v, want -12.5", rmsDB)
	}
	if voices != 2 {
		t.Fatalf("voices = %d, want 2", voices)
	}

	for i := 0; i < int(voices); i++ {
		var freq, conf, ref float32
		binary.Read(r, binary.BigEndian, &freq)
		binary.Read(r, binary.BigEndian, &conf)
		binary.Read(r, binary.BigEndian, &ref)

		want := res.Pitches[i]
		if float64(freq) != float64(float32(want.Frequency)) {
			t.Errorf("voice %d frequency = %v, want %v", i, freq, want.Frequency)
		}
		if float64(ref) != float64(float32(want.Reference)) {
			t.Errorf("voice %d reference = %v, want %v", i, ref, want.Reference)
		}
		if conf <= 0 || conf > 1 {
			t.Errorf("voice %d confidence = %v out of range", i, conf)
		}
	}
}

func TestPublisherSkipsWithoutFreshData(t *testing.T) {
	listener, sender := newLoopbackPair(t)

	p, err := NewPublisher(time.Millisecond, sender)
	if err != nil {
		t.Fatal(err)
	}

	// No Send yet; nothing should go out.
	p.buildAndSendPacket()

	p.Send(engine.AnalysisResult{Voices: 1})
	p.buildAndSendPacket()
	// Payload consumed; a second tick sends nothing.
	p.buildAndSendPacket()

	listener.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1500)
	if _, _, err := listener.ReadFromUDP(buf); err != nil {
		t.Fatalf("expected exactly one packet, read failed: %v", err)
	}

	listener.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := listener.ReadFromUDP(buf); err == nil {
		t.Error("unexpected second packet")
	}
}

func TestPublisherStartStop(t *testing.T) {
	_, sender := newLoopbackPair(t)

	p, err := NewPublisher(time.Millisecond, sender)
	if err != nil {
		t.Fatal(err)
	}

	p.Start()
	p.Send(engine.AnalysisResult{Voices: 1})
	time.Sleep(10 * time.Millisecond)

	if err := p.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	// Stop again is a no-op.
	if err := p.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestSenderClosedRejectsSend(t *testing.T) {
	_, sender := newLoopbackPair(t)

	if err := sender.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := sender.Send([]byte{1, 2, 3}); err == nil {
		t.Error("send on a closed sender must fail")
	}
}
