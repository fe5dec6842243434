// SPDX-License-Identifier: MIT
//
// Package transport fans analysis and debug reports out of the engine to
// interested sinks (WebSocket clients, UDP targets, the log).
package transport

import (
	"pitchtone/internal/engine"
	"pitchtone/internal/log"
)

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// LoggingTransport implements the Transport interface by logging report
// summaries. Useful with --verbose when no other sink is configured.
type LoggingTransport struct{}

func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs a one-line summary of known report types at debug level.
func (lt *LoggingTransport) Send(data any) error {
	switch r := data.(type) {
	case engine.AnalysisResult:
		p := r.Pitches[0]
		log.Debugf("hop %d: %s %+.1fc (%.2f Hz, conf %.2f, ref %.2f Hz, gate %v)",
			r.Hop, p.NoteName, p.Cents, p.Frequency, p.Confidence, p.Reference, r.GateOpen)
	case engine.DebugReport:
		log.Debugf("debug: cpu %.1f%% dropped %d floor %.3g latency %.1fms",
			r.CPUFraction*100, r.DroppedReports, r.NoiseFloor, r.LatencyMs)
	default:
		log.Debugf("transport: %+v", data)
	}
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
