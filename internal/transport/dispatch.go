// SPDX-License-Identifier: MIT
package transport

import (
	"sync"

	"pitchtone/internal/engine"
	"pitchtone/internal/log"
)

// Dispatcher drains the engine's report channels and fans each report out to
// the subscribed transports. Subscription is explicit so sinks can come and
// go while the stream runs.
type Dispatcher struct {
	mu    sync.Mutex
	sinks []Transport

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		done: make(chan struct{}),
	}
}

// Subscribe registers a sink for future reports.
func (d *Dispatcher) Subscribe(t Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, t)
}

// Unsubscribe removes a sink. The sink is not closed.
func (d *Dispatcher) Unsubscribe(t Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, s := range d.sinks {
		if s == t {
			d.sinks = append(d.sinks[:i], d.sinks[i+1:]...)
			return
		}
	}
}

// Run drains both engine channels until Close is called. It returns
// immediately; draining happens on its own goroutine.
func (d *Dispatcher) Run(analysis <-chan engine.AnalysisResult, debug <-chan engine.DebugReport) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case r := <-analysis:
				d.dispatch(r)
			case r := <-debug:
				d.dispatch(r)
			case <-d.done:
				return
			}
		}
	}()
}

// Broadcast sends a one-off message, such as a startup or fault
// notification, to every subscribed sink.
func (d *Dispatcher) Broadcast(data any) {
	d.dispatch(data)
}

func (d *Dispatcher) dispatch(data any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sinks {
		if err := s.Send(data); err != nil {
			log.Warnf("transport send failed: %v", err)
		}
	}
}

// Close stops the drain loop and closes every subscribed sink.
func (d *Dispatcher) Close() error {
	d.stopOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()

	d.mu.Lock()
	sinks := d.sinks
	d.sinks = nil
	d.mu.Unlock()

	var firstErr error
	for _, s := range sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
