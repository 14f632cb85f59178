package daq

import "time"

// Transport defines the byte-stream boundary of an acquisition device (real or simulated).
// Every read is bounded by an explicit timeout so callers can keep their own deadlines live.
type Transport interface {
	Open() error
	ReadLine(timeout time.Duration) (RawLine, error)
	Write(p []byte) (int, error)
	Close() error
}

// PortFinder discovers candidate device ports.
type PortFinder interface {
	Ports() ([]Port, error)
}

// Ensure Serial implements Transport.
var _ Transport = (*Serial)(nil)

// Ensure Simulator implements Transport.
var _ Transport = (*Simulator)(nil)

var (
	_ PortFinder = FixedPort{}
	_ PortFinder = EnumeratedPorts{}
)
