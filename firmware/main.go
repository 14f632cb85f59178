//go:build tinygo

//go:generate tinygo flash -target=arduino

package main

import (
	"machine"
	"strconv"
	"time"
)

const (
	readyMarker    = "ARDUINO_DAQ_READY"
	startCommand   = "START"
	header         = "Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)"
	startAck       = "RECORDING_STARTED"
	completeMarker = "RECORDING_COMPLETE"
	countLabel     = "SAMPLES_COLLECTED:"
	endMarker      = "END_OF_DATA"
)

var (
	adcs [len(analogPins)]machine.ADC
	uart = machine.UART0

	// Serial buffer for reading command lines
	serialBuffer [16]byte
	serialPos    int

	// Output row buffer
	row [64]byte
)

func main() {
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	machine.InitADC()
	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, pin := range analogPins {
		pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		adcs[i] = machine.ADC{Pin: pin}
		adcs[i].Configure(adcConfig)
	}

	// Give the host time to open the port after the reset caused by connecting.
	time.Sleep(READY_DELAY_MS * time.Millisecond)
	writeLine(readyMarker)

	for {
		if readCommand() == startCommand {
			record()
		}
		time.Sleep(time.Millisecond)
	}
}

// record streams one time-boxed recording.
func record() {
	// Drop anything that arrived with the start command.
	for uart.Buffered() > 0 {
		uart.ReadByte()
	}

	writeLine(header)
	start := time.Now()
	writeLine(startAck)

	samples := 0
	next := start
	for {
		now := time.Now()
		elapsed := now.Sub(start)
		if elapsed >= RECORDING_DURATION_MS*time.Millisecond {
			break
		}
		if now.Before(next) {
			continue
		}
		next = next.Add(SAMPLE_INTERVAL_MS * time.Millisecond)

		samples++
		writeRow(samples, elapsed.Milliseconds())
	}

	writeLine(completeMarker)
	writeLine(countLabel + strconv.Itoa(samples))
	writeLine(endMarker)
}

func writeLine(s string) {
	uart.Write([]byte(s))
	uart.Write([]byte("\r\n"))
}

// writeRow outputs "sample,time_ms,v0,v1,v2,v3" with volts to 3 decimals.
func writeRow(sample int, ms int64) {
	b := row[:0]
	b = strconv.AppendInt(b, int64(sample), 10)
	b = append(b, ',')
	b = strconv.AppendInt(b, ms, 10)
	for i := range adcs {
		b = append(b, ',')
		b = appendMillivolts(b, millivolts(adcs[i].Get()))
	}
	b = append(b, '\r', '\n')
	uart.Write(b)
}

// millivolts scales a 16-bit left aligned ADC reading to the reference voltage.
func millivolts(raw uint16) uint32 {
	return uint32(raw) * ADC_REFERENCE_MV / ADC_FULL_SCALE
}

// appendMillivolts formats mv as volts with three decimals: 2503 -> "2.503".
func appendMillivolts(b []byte, mv uint32) []byte {
	b = strconv.AppendUint(b, uint64(mv/1000), 10)
	b = append(b, '.')
	frac := mv % 1000
	if frac < 100 {
		b = append(b, '0')
	}
	if frac < 10 {
		b = append(b, '0')
	}
	return strconv.AppendUint(b, uint64(frac), 10)
}

// readCommand returns a complete trimmed command line, or "" if none is pending.
func readCommand() string {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos == 0 {
				continue
			}
			cmd := string(serialBuffer[:serialPos])
			serialPos = 0
			return cmd
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		} else {
			// Overlong line - reset buffer
			serialPos = 0
		}
	}
	return ""
}
