package daq

import (
	"fmt"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/godaq/pkg/config"
)

const (
	// DefaultBaudRate is the baud rate of the reference firmware.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the number of lines a simulated device may queue.
	DefaultBufferSize = 1024
	// DefaultReadTimeout bounds a single low-level read when none is configured.
	DefaultReadTimeout = 100 * time.Millisecond

	readChunk = 256
)

// Serial is a Transport backed by a serial port.
type Serial struct {
	port        string
	baudRate    int
	readTimeout time.Duration
	settleDelay time.Duration

	open func(name string, mode *serial.Mode) (serial.Port, error)

	mu      sync.Mutex
	conn    serial.Port
	framer  LineFramer
	chunk   []byte
	timeout time.Duration // currently programmed port read timeout
}

// NewSerial creates a serial transport from configuration.
func NewSerial(cfg config.SerialConfig) *Serial {
	baudRate := cfg.BaudRate
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Serial{
		port:        cfg.Port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
		settleDelay: cfg.SettleDelay,
		open:        serial.Open,
		chunk:       make([]byte, readChunk),
	}
}

// Open opens the serial port. When a settle delay is configured the device is
// given time to reset and any buffered boot output is discarded.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return &TransportError{Op: "open", Port: s.port, Err: fmt.Errorf("already open")}
	}

	port, err := s.open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return &TransportError{Op: "open", Port: s.port, Err: err}
	}

	if err := port.SetReadTimeout(s.readTimeout); err != nil {
		port.Close()
		return &TransportError{Op: "open", Port: s.port, Err: err}
	}
	s.timeout = s.readTimeout

	if s.settleDelay > 0 {
		time.Sleep(s.settleDelay)
		if err := port.ResetInputBuffer(); err != nil {
			log.Printf("Failed to flush input buffer on %s: %v", s.port, err)
		}
		if err := port.ResetOutputBuffer(); err != nil {
			log.Printf("Failed to flush output buffer on %s: %v", s.port, err)
		}
	}

	s.conn = port
	s.framer.Reset()
	return nil
}

// ReadLine returns the next complete line, waiting at most timeout.
// It returns ErrReadTimeout if no full line arrived in time.
func (s *Serial) ReadLine(timeout time.Duration) (RawLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return RawLine{}, &TransportError{Op: "read", Port: s.port, Err: ErrClosed}
	}

	if line, ok := s.framer.Next(); ok {
		return line, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return RawLine{}, ErrReadTimeout
		}
		// Never wait on the port longer than the configured per-read bound.
		if remaining > s.readTimeout {
			remaining = s.readTimeout
		}
		if err := s.setTimeout(remaining); err != nil {
			return RawLine{}, &TransportError{Op: "read", Port: s.port, Err: err}
		}

		n, err := s.conn.Read(s.chunk)
		if err != nil {
			return RawLine{}, &TransportError{Op: "read", Port: s.port, Err: err}
		}
		if n > 0 {
			s.framer.Feed(s.chunk[:n])
			if line, ok := s.framer.Next(); ok {
				return line, nil
			}
		}
	}
}

// Write sends raw bytes to the device.
func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return 0, &TransportError{Op: "write", Port: s.port, Err: ErrClosed}
	}

	n, err := s.conn.Write(p)
	if err != nil {
		return n, &TransportError{Op: "write", Port: s.port, Err: err}
	}
	return n, nil
}

// Close closes the port. Closing a closed transport is a no-op.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil
	s.framer.Reset()
	if err != nil {
		return &TransportError{Op: "close", Port: s.port, Err: err}
	}
	return nil
}

// IsOpen reports whether the port is currently open.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

func (s *Serial) setTimeout(t time.Duration) error {
	if t == s.timeout {
		return nil
	}
	if err := s.conn.SetReadTimeout(t); err != nil {
		return err
	}
	s.timeout = t
	return nil
}
