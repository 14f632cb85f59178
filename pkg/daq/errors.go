package daq

import (
	"errors"
	"fmt"
)

var (
	// ErrReadTimeout is returned by ReadLine when no complete line arrived within the timeout.
	ErrReadTimeout = errors.New("read timeout")
	// ErrClosed is returned when the transport is used after Close.
	ErrClosed = errors.New("transport closed")
)

// TransportError describes a failed open, read, write or close on a transport.
type TransportError struct {
	Op   string
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is (or wraps) a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
