// SPDX-License-Identifier: MIT
package transport

import (
	"sync"
	"testing"
	"time"

	"pitchtone/internal/engine"
	"pitchtone/pkg/utils"
)

// syncTransport records payloads under a mutex so the test can poll while
// the dispatcher goroutine is still delivering.
type syncTransport struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

func (s *syncTransport) Send(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	return nil
}

func (s *syncTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *syncTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatcherFansOutToAllSinks(t *testing.T) {
	analysis := make(chan engine.AnalysisResult, 4)
	debug := make(chan engine.DebugReport, 4)

	a := &syncTransport{}
	b := &syncTransport{}

	d := NewDispatcher()
	d.Subscribe(a)
	d.Subscribe(b)
	d.Run(analysis, debug)

	analysis <- engine.AnalysisResult{Hop: 1}
	debug <- engine.DebugReport{HopCount: 1}

	waitFor(t, func() bool { return a.count() == 2 && b.count() == 2 })

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("Close must close every subscribed sink")
	}
}

func TestDispatcherUnsubscribeStopsDelivery(t *testing.T) {
	analysis := make(chan engine.AnalysisResult, 4)
	debug := make(chan engine.DebugReport, 4)

	a := &syncTransport{}
	b := &syncTransport{}

	d := NewDispatcher()
	d.Subscribe(a)
	d.Subscribe(b)
	d.Run(analysis, debug)

	analysis <- engine.AnalysisResult{Hop: 1}
	waitFor(t, func() bool { return a.count() == 1 && b.count() == 1 })

	d.Unsubscribe(b)

	analysis <- engine.AnalysisResult{Hop: 2}
	waitFor(t, func() bool { return a.count() == 2 })

	if b.count() != 1 {
		t.Errorf("unsubscribed sink received %d reports, want 1", b.count())
	}

	d.Close()
	if b.closed {
		t.Error("Close must not close sinks that were unsubscribed")
	}
}

func TestBroadcastReachesEverySink(t *testing.T) {
	a := &syncTransport{}
	b := &syncTransport{}

	d := NewDispatcher()
	d.Subscribe(a)
	d.Subscribe(b)

	d.Broadcast(engine.Ready{SampleRate: 48000})
	d.Broadcast(engine.ErrorMessage{Message: "stream failed"})

	for _, s := range []*syncTransport{a, b} {
		if s.count() != 2 {
			t.Fatalf("sink received %d payloads, want 2", s.count())
		}
		s.mu.Lock()
		if r, ok := s.sent[0].(engine.Ready); !ok || r.SampleRate != 48000 {
			t.Errorf("first payload = %+v, want ready at 48000", s.sent[0])
		}
		if m, ok := s.sent[1].(engine.ErrorMessage); !ok || m.Message != "stream failed" {
			t.Errorf("second payload = %+v, want the error message", s.sent[1])
		}
		s.mu.Unlock()
	}
}

func TestDispatchDeliversInOrder(t *testing.T) {
	m := &utils.MockTransport{}

	d := NewDispatcher()
	d.Subscribe(m)

	d.dispatch(engine.AnalysisResult{Hop: 4})
	d.dispatch(engine.AnalysisResult{Hop: 8})
	d.dispatch(engine.DebugReport{HopCount: 8})

	if len(m.Sent) != 3 {
		t.Fatalf("sink received %d payloads, want 3", len(m.Sent))
	}
	if r, ok := m.Sent[0].(engine.AnalysisResult); !ok || r.Hop != 4 {
		t.Errorf("first payload = %+v, want analysis hop 4", m.Sent[0])
	}
	if r, ok := m.Sent[1].(engine.AnalysisResult); !ok || r.Hop != 8 {
		t.Errorf("second payload = %+v, want analysis hop 8", m.Sent[1])
	}
	if _, ok := m.Sent[2].(engine.DebugReport); !ok {
		t.Errorf("third payload = %+v, want a debug report", m.Sent[2])
	}
}

func TestDispatcherCloseIsIdempotent(t *testing.T) {
	d := NewDispatcher()
	d.Run(make(chan engine.AnalysisResult), make(chan engine.DebugReport))

	if err := d.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
