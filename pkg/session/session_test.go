package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/daq"
)

// scriptedTransport replays boot lines after Open and recording lines after
// the start command is written. An empty queue behaves like a quiet line.
type scriptedTransport struct {
	mu        sync.Mutex
	boot      []string
	recording []string
	started   bool
	seq       uint64

	openErr  error
	writeErr error
	readErr  error // returned once the active queue is empty

	opens  int
	closes int
	writes []string
}

func (s *scriptedTransport) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return &daq.TransportError{Op: "open", Port: "script", Err: s.openErr}
	}
	s.opens++
	return nil
}

func (s *scriptedTransport) ReadLine(timeout time.Duration) (daq.RawLine, error) {
	s.mu.Lock()
	queue := &s.boot
	if s.started {
		queue = &s.recording
	}
	if len(*queue) > 0 {
		text := (*queue)[0]
		*queue = (*queue)[1:]
		s.seq++
		line := daq.RawLine{Seq: s.seq, Text: text}
		s.mu.Unlock()
		return line, nil
	}
	readErr := s.readErr
	s.mu.Unlock()

	if readErr != nil {
		return daq.RawLine{}, &daq.TransportError{Op: "read", Port: "script", Err: readErr}
	}
	time.Sleep(timeout)
	return daq.RawLine{}, daq.ErrReadTimeout
}

func (s *scriptedTransport) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return 0, &daq.TransportError{Op: "write", Port: "script", Err: s.writeErr}
	}
	s.writes = append(s.writes, string(p))
	s.started = true
	return len(p), nil
}

func (s *scriptedTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func testSessionConfig() config.SessionConfig {
	cfg := config.Default().Session
	cfg.ReadyTimeout = 100 * time.Millisecond
	cfg.DeviceDuration = 50 * time.Millisecond
	cfg.MaxDuration = 200 * time.Millisecond
	cfg.DrainTimeout = 50 * time.Millisecond
	return cfg
}

func testOptions(t *testing.T) Options {
	return Options{ReadTimeout: 5 * time.Millisecond, Logf: t.Logf}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{Idle, "IDLE", false},
		{AwaitingReady, "AWAITING_READY", false},
		{Ready, "READY", false},
		{Recording, "RECORDING", false},
		{Completed, "COMPLETED", true},
		{TimedOut, "TIMEOUT", true},
		{Aborted, "ABORTED", true},
		{State(42), "State(42)", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			assert.Equal(t, tt.terminal, tt.state.Terminal())
		})
	}
}

func TestSession_HappyPath(t *testing.T) {
	tr := &scriptedTransport{
		boot: []string{"", "booting", "ARDUINO_DAQ_READY"},
		recording: []string{
			"Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)",
			"RECORDING_STARTED",
			"1,0,2.500,2.500,2.500,2.500",
			"2,2,2.510,2.490,2.500,2.500",
			"3,4,2.520,2.480,2.500,2.500",
			"RECORDING_COMPLETE",
			"SAMPLES_COLLECTED:3",
			"END_OF_DATA",
		},
	}

	s := New(tr, testSessionConfig(), testOptions(t))
	assert.Equal(t, Idle, s.State())

	res := s.Run(context.Background())
	require.NoError(t, res.Err)

	assert.Equal(t, Completed, res.State)
	assert.Equal(t, Completed, s.State())
	assert.Equal(t, []State{Idle, AwaitingReady, Ready, Recording, Completed}, res.Transitions)
	assert.Equal(t, []string{
		"1,0,2.500,2.500,2.500,2.500",
		"2,2,2.510,2.490,2.500,2.500",
		"3,4,2.520,2.480,2.500,2.500",
	}, res.Lines())
	assert.Equal(t, "Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)", res.Header)
	assert.False(t, res.ReadyMissed)
	assert.Zero(t, res.Discarded)

	n, ok := res.DeviceSamples()
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	for i := 1; i < len(res.Rows); i++ {
		assert.Less(t, res.Rows[i-1].Seq, res.Rows[i].Seq, "rows must keep arrival order")
	}

	assert.Equal(t, []string{"START\n"}, tr.writes)
	assert.Equal(t, 1, tr.opens)
	assert.Equal(t, 1, tr.closes)
}

func TestSession_EndWithoutComplete(t *testing.T) {
	tr := &scriptedTransport{
		boot:      []string{"ARDUINO_DAQ_READY"},
		recording: []string{"1,0,1,1,1,1", "END_OF_DATA"},
	}

	res := New(tr, testSessionConfig(), testOptions(t)).Run(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, Completed, res.State)
	assert.Len(t, res.Rows, 1)
	_, ok := res.DeviceSamples()
	assert.False(t, ok)
}

func TestSession_RecordingTimeout(t *testing.T) {
	tests := []struct {
		name     string
		rows     []string
		wantRows int
	}{
		{name: "partial rows", rows: []string{"RECORDING_STARTED", "1,0,1,1,1,1", "2,2,1,1,1,1"}, wantRows: 2},
		{name: "no rows", rows: nil, wantRows: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTransport{boot: []string{"ARDUINO_DAQ_READY"}, recording: tt.rows}
			cfg := testSessionConfig()

			start := time.Now()
			res := New(tr, cfg, testOptions(t)).Run(context.Background())
			elapsed := time.Since(start)

			assert.Equal(t, TimedOut, res.State)
			assert.ErrorIs(t, res.Err, ErrProtocolTimeout)
			assert.Equal(t, []State{Idle, AwaitingReady, Ready, Recording, TimedOut}, res.Transitions)
			assert.Len(t, res.Rows, tt.wantRows)
			assert.GreaterOrEqual(t, elapsed, cfg.MaxDuration)
			assert.Less(t, elapsed, cfg.MaxDuration+time.Second)
			assert.Equal(t, 1, tr.closes)
		})
	}
}

func TestSession_ReadyWait(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		tr := &scriptedTransport{boot: []string{"hello"}}
		cfg := testSessionConfig()
		cfg.StrictReady = true

		res := New(tr, cfg, testOptions(t)).Run(context.Background())
		assert.Equal(t, TimedOut, res.State)
		assert.ErrorIs(t, res.Err, ErrProtocolTimeout)
		assert.Equal(t, []State{Idle, AwaitingReady, TimedOut}, res.Transitions)
		assert.Empty(t, tr.writes, "start must not be sent")
		assert.Equal(t, 1, tr.closes)
	})

	t.Run("lenient", func(t *testing.T) {
		tr := &scriptedTransport{recording: []string{"1,0,1,1,1,1", "RECORDING_COMPLETE", "END_OF_DATA"}}

		res := New(tr, testSessionConfig(), testOptions(t)).Run(context.Background())
		require.NoError(t, res.Err)
		assert.True(t, res.ReadyMissed)
		assert.Equal(t, Completed, res.State)
		assert.Equal(t, []State{Idle, AwaitingReady, Ready, Recording, Completed}, res.Transitions)
		assert.Len(t, res.Rows, 1)
	})
}

func TestSession_TransportFailures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		tr := &scriptedTransport{openErr: errors.New("no such device")}

		res := New(tr, testSessionConfig(), testOptions(t)).Run(context.Background())
		assert.Equal(t, Aborted, res.State)
		assert.Equal(t, []State{Idle, Aborted}, res.Transitions)
		assert.True(t, daq.IsTransportError(res.Err))
		assert.Zero(t, tr.closes)
	})

	t.Run("write", func(t *testing.T) {
		tr := &scriptedTransport{boot: []string{"ARDUINO_DAQ_READY"}, writeErr: errors.New("broken pipe")}

		res := New(tr, testSessionConfig(), testOptions(t)).Run(context.Background())
		assert.Equal(t, Aborted, res.State)
		assert.True(t, daq.IsTransportError(res.Err))
		assert.Equal(t, 1, tr.closes)
	})

	t.Run("read keeps rows", func(t *testing.T) {
		tr := &scriptedTransport{
			boot:      []string{"ARDUINO_DAQ_READY"},
			recording: []string{"1,0,1,1,1,1", "2,2,1,1,1,1"},
			readErr:   errors.New("device unplugged"),
		}

		res := New(tr, testSessionConfig(), testOptions(t)).Run(context.Background())
		assert.Equal(t, Aborted, res.State)
		assert.True(t, daq.IsTransportError(res.Err))
		assert.Len(t, res.Rows, 2)
		assert.Equal(t, 1, tr.closes)
	})
}

func TestSession_Abort(t *testing.T) {
	tr := &scriptedTransport{boot: []string{"ARDUINO_DAQ_READY"}, recording: []string{"1,0,1,1,1,1"}}
	cfg := testSessionConfig()
	cfg.MaxDuration = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	done := make(chan *Result, 1)
	go func() {
		done <- New(tr, cfg, testOptions(t)).Run(ctx)
	}()

	select {
	case res := <-done:
		assert.Equal(t, Aborted, res.State)
		assert.ErrorIs(t, res.Err, ErrAborted)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Len(t, res.Rows, 1)
		tr.mu.Lock()
		assert.Equal(t, 1, tr.closes)
		tr.mu.Unlock()
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe cancellation")
	}
}

func TestSession_AbortBeforeReady(t *testing.T) {
	tr := &scriptedTransport{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(tr, testSessionConfig(), testOptions(t)).Run(ctx)
	assert.Equal(t, Aborted, res.State)
	assert.Equal(t, []State{Idle, AwaitingReady, Aborted}, res.Transitions)
	assert.ErrorIs(t, res.Err, ErrAborted)
	assert.Equal(t, 1, tr.closes)
}

func TestSession_DiscardsNoise(t *testing.T) {
	tr := &scriptedTransport{
		boot: []string{"ARDUINO_DAQ_READY"},
		recording: []string{
			"RECORDING_STARTED",
			"1,0,1,1,1,1",
			"ERROR: overflow",
			"2,2,1,1",
			"Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)",
			"Sample,Time(ms),A0(V),A1(V),A2(V),A3(V)",
			"3,4,1,abc,1,1",
			"4,6,2.5.5,1,1,1",
			"RECORDING_COMPLETE",
			"junk after completion",
			"END_OF_DATA",
		},
	}

	res := New(tr, testSessionConfig(), testOptions(t)).Run(context.Background())
	require.NoError(t, res.Err)
	// Numeric looking rows pass; full validation is the cleaner's job.
	assert.Equal(t, []string{"1,0,1,1,1,1", "4,6,2.5.5,1,1,1"}, res.Lines())
	assert.Equal(t, 5, res.Discarded)
}

func TestSession_RunTwice(t *testing.T) {
	tr := &scriptedTransport{boot: []string{"ARDUINO_DAQ_READY"}, recording: []string{"END_OF_DATA"}}
	s := New(tr, testSessionConfig(), testOptions(t))

	first := s.Run(context.Background())
	require.NoError(t, first.Err)

	second := s.Run(context.Background())
	assert.ErrorIs(t, second.Err, ErrAlreadyRun)
	assert.Equal(t, 1, tr.opens)
}

func TestSession_Simulator(t *testing.T) {
	sessCfg := testSessionConfig()
	mockCfg := config.Default().Mock
	mockCfg.ReadyDelay = 10 * time.Millisecond
	mockCfg.SampleInterval = 2 * time.Millisecond
	mockCfg.RecordingDuration = 60 * time.Millisecond
	mockCfg.NoiseLines = 5

	sim := daq.NewSimulator(&mockCfg, &sessCfg)
	res := New(sim, sessCfg, testOptions(t)).Run(context.Background())
	require.NoError(t, res.Err)

	assert.Equal(t, Completed, res.State)
	assert.NotEmpty(t, res.Rows)
	assert.Equal(t, daq.SimulatorHeader, res.Header)
	assert.Positive(t, res.Discarded)

	n, ok := res.DeviceSamples()
	require.True(t, ok)
	assert.Equal(t, len(res.Rows), n)
	assert.Equal(t, []string{"START"}, sim.Commands())
	assert.False(t, sim.IsOpen())
}
