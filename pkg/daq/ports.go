package daq

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
	IsUSB       bool
}

// FixedPort always reports a single, user supplied or configured port.
type FixedPort struct {
	Name string
}

// Ports returns the fixed port.
func (f FixedPort) Ports() ([]Port, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("no port configured")
	}
	return []Port{{Name: f.Name, Description: f.Name}}, nil
}

// EnumeratedPorts asks the operating system for available serial ports.
type EnumeratedPorts struct{}

// Ports returns detailed USB information when the platform provides it and
// falls back to the plain port list otherwise.
func (EnumeratedPorts) Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil && len(details) > 0 {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			result = append(result, describe(d))
		}
		return result, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

func describe(d *enumerator.PortDetails) Port {
	p := Port{Name: d.Name, Description: d.Name, IsUSB: d.IsUSB}
	if d.IsUSB {
		desc := fmt.Sprintf("USB %s:%s", d.VID, d.PID)
		if d.Product != "" {
			desc = d.Product + " (" + desc + ")"
		}
		if d.SerialNumber != "" {
			desc += " S/N " + d.SerialNumber
		}
		p.Description = desc
	}
	return p
}
