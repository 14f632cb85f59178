package daq

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/itohio/godaq/pkg/config"
)

// SimulatorChannels is the number of analog channels the simulator reports.
const SimulatorChannels = 4

// SimulatorHeader matches the header line printed by the reference firmware.
const SimulatorHeader = "Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)"

// Simulator is an in-process Transport that behaves like the DAQ firmware.
type Simulator struct {
	cfg     config.MockConfig
	markers config.SessionConfig

	lines  chan string
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc

	connected bool
	recording bool
	seq       uint64
	writes    []string
	rng       *rand.Rand
	wg        sync.WaitGroup
}

// NewSimulator creates a simulated device. Nil configs fall back to defaults.
func NewSimulator(cfg *config.MockConfig, markers *config.SessionConfig) *Simulator {
	def := config.Default()
	if cfg == nil {
		cfg = &def.Mock
	}
	if markers == nil {
		markers = &def.Session
	}

	return &Simulator{
		cfg:     *cfg,
		markers: *markers,
		rng:     rand.New(rand.NewPCG(1, 2)),
	}
}

// Open simulates connecting to the device. The ready marker follows after ReadyDelay.
func (m *Simulator) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return &TransportError{Op: "open", Port: "simulator", Err: fmt.Errorf("already open")}
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.lines = make(chan string, DefaultBufferSize)
	m.connected = true
	m.recording = false

	ctx := m.ctx
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		select {
		case <-time.After(m.cfg.ReadyDelay):
			m.emit(ctx, m.markers.ReadyMarker)
		case <-ctx.Done():
		}
	}()

	return nil
}

// ReadLine waits at most timeout for the next simulated line.
func (m *Simulator) ReadLine(timeout time.Duration) (RawLine, error) {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return RawLine{}, &TransportError{Op: "read", Port: "simulator", Err: ErrClosed}
	}
	lines, ctx := m.lines, m.ctx
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case text := <-lines:
		m.mu.Lock()
		m.seq++
		line := RawLine{Seq: m.seq, Text: decode([]byte(text))}
		m.mu.Unlock()
		return line, nil
	case <-timer.C:
		return RawLine{}, ErrReadTimeout
	case <-ctx.Done():
		return RawLine{}, &TransportError{Op: "read", Port: "simulator", Err: ErrClosed}
	}
}

// Write accepts newline terminated commands. START begins a recording.
func (m *Simulator) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, &TransportError{Op: "write", Port: "simulator", Err: ErrClosed}
	}

	scanner := bufio.NewScanner(bytes.NewReader(p))
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		if cmd == "" {
			continue
		}
		m.writes = append(m.writes, cmd)
		if cmd == m.markers.StartCommand && !m.recording {
			m.recording = true
			ctx := m.ctx
			m.wg.Add(1)
			go m.record(ctx)
		}
	}

	return len(p), nil
}

// Close stops the simulated device and waits for its generators to exit.
func (m *Simulator) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.connected = false
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// IsOpen reports whether the simulator is connected.
func (m *Simulator) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Commands returns the commands written so far.
func (m *Simulator) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.writes...)
}

// record streams one recording the way the firmware does: header, ack,
// rows until the recording duration elapses, then the trailing markers.
func (m *Simulator) record(ctx context.Context) {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		m.recording = false
		m.mu.Unlock()
	}()

	if !m.emit(ctx, SimulatorHeader) || !m.emit(ctx, m.markers.StartAck) {
		return
	}

	ticker := time.NewTicker(m.cfg.SampleInterval)
	defer ticker.Stop()

	start := time.Now()
	count := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed > m.cfg.RecordingDuration {
				m.emit(ctx, m.markers.CompleteMarker)
				m.emit(ctx, fmt.Sprintf("SAMPLES_COLLECTED:%d", count))
				m.emit(ctx, m.markers.EndMarker)
				return
			}

			count++
			if !m.emit(ctx, m.generateRow(count, elapsed)) {
				return
			}
			if m.cfg.NoiseLines > 0 && count%m.cfg.NoiseLines == 0 {
				// A truncated row, as produced by a dropped byte on the line.
				if !m.emit(ctx, fmt.Sprintf("%d,%d,2.5", count, elapsed.Milliseconds())) {
					return
				}
			}
		}
	}
}

// generateRow builds "sample,elapsed_ms,v0,v1,v2,v3" with 0-5V sine channels plus noise.
func (m *Simulator) generateRow(n int, elapsed time.Duration) string {
	t := elapsed.Seconds()

	var b strings.Builder
	fmt.Fprintf(&b, "%d,%d", n, elapsed.Milliseconds())
	for ch := range SimulatorChannels {
		phase := float64(ch) * math.Pi / 2
		v := 2.5 + 2.0*math.Sin(2*math.Pi*m.cfg.SignalHz*t+phase)
		v += (m.rng.Float64()*2 - 1) * m.cfg.NoiseLevel
		v = math.Max(0, math.Min(5, v))
		fmt.Fprintf(&b, ",%.3f", v)
	}
	return b.String()
}

func (m *Simulator) emit(ctx context.Context, line string) bool {
	m.mu.Lock()
	lines := m.lines
	m.mu.Unlock()

	select {
	case lines <- line:
		return true
	case <-ctx.Done():
		return false
	}
}
