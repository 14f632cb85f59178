//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS    = 2    // Time between rows in milliseconds
	RECORDING_DURATION_MS = 5000 // Recording length, the host deadline must be longer
	READY_DELAY_MS        = 1000 // Wait after boot before announcing readiness

	// ADC configuration
	ADC_REFERENCE_MV = 5000 // Reference voltage in millivolts (5V)
	ADC_RESOLUTION   = 10   // ADC resolution in bits (10-bit = 0-1023)
	ADC_FULL_SCALE   = 0xFFFF

	// Serial configuration
	// Row format: "sample,time_ms,v0,v1,v2,v3\n"
	// Example: "2500,4998,2.503,2.497,0.000,4.998\n" = ~36 bytes max per row
	// 500 rows/sec * 36 bytes/row = 18,000 bytes/sec
	// UART 8N1: 10 bits/byte = 180,000 baud would be needed for a sustained stream.
	// At 115200 rows are paced by the line; the host estimates the real rate from timestamps.
	UART_BAUD_RATE = 115200
)

// Analog inputs in column order.
var analogPins = [4]machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3}
