// Package timing measures the phases of one request attempt.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the timing of one attempt.
type Metrics struct {
	// TCPConnect is the time spent dialing the server or proxy
	TCPConnect time.Duration `json:"tcp_connect"`

	// Tunnel is the time spent on the CONNECT exchange (0 without proxy)
	Tunnel time.Duration `json:"tunnel,omitempty"`

	// TLSHandshake is the time spent performing TLS handshake (0 for HTTP)
	TLSHandshake time.Duration `json:"tls_handshake"`

	// TTFB is the time between the end of the write and the first
	// response byte
	TTFB time.Duration `json:"ttfb"`

	// TotalTime is the total attempt time
	TotalTime time.Duration `json:"total_time"`
}

// Timer records phase boundaries. A nil *Timer ignores every call.
type Timer struct {
	start       time.Time
	tcpStart    time.Time
	tcpEnd      time.Time
	tunnelStart time.Time
	tunnelEnd   time.Time
	tlsStart    time.Time
	tlsEnd      time.Time
	ttfbStart   time.Time
	ttfbEnd     time.Time
}

// NewTimer starts a measurement.
func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func mark(field *time.Time) {
	*field = time.Now()
}

// StartTCP marks the beginning of the dial.
func (t *Timer) StartTCP() {
	if t != nil {
		mark(&t.tcpStart)
	}
}

// EndTCP marks the end of the dial.
func (t *Timer) EndTCP() {
	if t != nil {
		mark(&t.tcpEnd)
	}
}

// StartTunnel marks the beginning of the CONNECT exchange.
func (t *Timer) StartTunnel() {
	if t != nil {
		mark(&t.tunnelStart)
	}
}

// EndTunnel marks the end of the CONNECT exchange.
func (t *Timer) EndTunnel() {
	if t != nil {
		mark(&t.tunnelEnd)
	}
}

// StartTLS marks the beginning of TLS handshake.
func (t *Timer) StartTLS() {
	if t != nil {
		mark(&t.tlsStart)
	}
}

// EndTLS marks the end of TLS handshake.
func (t *Timer) EndTLS() {
	if t != nil {
		mark(&t.tlsEnd)
	}
}

// StartTTFB marks when we start waiting for the first response byte.
func (t *Timer) StartTTFB() {
	if t != nil {
		mark(&t.ttfbStart)
	}
}

// EndTTFB marks when we receive the first response byte. Only the first
// call counts.
func (t *Timer) EndTTFB() {
	if t != nil && t.ttfbEnd.IsZero() {
		mark(&t.ttfbEnd)
	}
}

func span(from, to time.Time) time.Duration {
	if from.IsZero() || to.IsZero() {
		return 0
	}
	return to.Sub(from)
}

// GetMetrics returns the durations measured so far.
func (t *Timer) GetMetrics() Metrics {
	if t == nil {
		return Metrics{}
	}
	return Metrics{
		TCPConnect:   span(t.tcpStart, t.tcpEnd),
		Tunnel:       span(t.tunnelStart, t.tunnelEnd),
		TLSHandshake: span(t.tlsStart, t.tlsEnd),
		TTFB:         span(t.ttfbStart, t.ttfbEnd),
		TotalTime:    time.Since(t.start),
	}
}

// GetConnectionTime returns the time to a usable stream (TCP + tunnel + TLS).
func (m Metrics) GetConnectionTime() time.Duration {
	return m.TCPConnect + m.Tunnel + m.TLSHandshake
}

// String provides a human-readable representation of the metrics.
func (m Metrics) String() string {
	return fmt.Sprintf("TCPConnect: %v, Tunnel: %v, TLSHandshake: %v, TTFB: %v, TotalTime: %v",
		m.TCPConnect, m.Tunnel, m.TLSHandshake, m.TTFB, m.TotalTime)
}
