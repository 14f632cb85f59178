// Package session drives one acquisition run against a device: wait for the
// ready marker, send the start command, collect data lines until the device
// reports completion or the deadline passes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/daq"
	"github.com/itohio/godaq/pkg/table"
)

// ProgressEvery is the number of rows between progress log lines.
const ProgressEvery = 100

// SamplesLabel is the count marker the firmware uses to report its own sample count.
const SamplesLabel = "SAMPLES_COLLECTED"

var (
	// ErrProtocolTimeout is returned when the ready wait (strict mode) or the
	// recording deadline elapses. Rows collected so far are still returned.
	ErrProtocolTimeout = errors.New("protocol timeout")
	// ErrAborted is returned when the run is cancelled.
	ErrAborted = errors.New("session aborted")
	// ErrAlreadyRun is returned when Run is called twice on the same session.
	ErrAlreadyRun = errors.New("session already run")
)

// Options tune a session beyond its protocol configuration.
type Options struct {
	// Schema decides which lines are headers and data. Defaults to table.DefaultSchema.
	Schema table.Schema
	// ReadTimeout bounds every transport read. Defaults to daq.DefaultReadTimeout.
	ReadTimeout time.Duration
	// Logf receives diagnostic output. Defaults to log.Printf.
	Logf func(format string, args ...any)
	// Metrics, when set, observes the result of the run.
	Metrics *Metrics
}

// Result is what a session produced. It is returned on every exit path.
type Result struct {
	ID          string
	State       State
	Transitions []State
	Header      string
	Rows        []daq.RawLine
	Counters    map[string]int
	Discarded   int
	ReadyMissed bool
	StartedAt   time.Time
	Duration    time.Duration
	Err         error
}

// Lines returns the text of the buffered rows in arrival order.
func (r *Result) Lines() []string {
	out := make([]string, len(r.Rows))
	for i, l := range r.Rows {
		out[i] = l.Text
	}
	return out
}

// DeviceSamples returns the sample count the device reported, if any.
func (r *Result) DeviceSamples() (int, bool) {
	n, ok := r.Counters[SamplesLabel]
	return n, ok
}

// Session owns a transport for the duration of one recording.
type Session struct {
	transport   daq.Transport
	cfg         config.SessionConfig
	classifier  Classifier
	readTimeout time.Duration
	logf        func(format string, args ...any)
	metrics     *Metrics

	res *Result
}

// New creates a session. The transport is opened by Run and always closed before Run returns.
func New(transport daq.Transport, cfg config.SessionConfig, opts Options) *Session {
	if len(opts.Schema.Channels) == 0 {
		opts.Schema = table.DefaultSchema
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = daq.DefaultReadTimeout
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}

	return &Session{
		transport:   transport,
		cfg:         cfg,
		classifier:  Classifier{Markers: cfg, Schema: opts.Schema},
		readTimeout: opts.ReadTimeout,
		logf:        opts.Logf,
		metrics:     opts.Metrics,
	}
}

// State returns the current session state.
func (s *Session) State() State {
	if s.res == nil {
		return Idle
	}
	return s.res.State
}

// Run executes the session until it reaches a terminal state.
func (s *Session) Run(ctx context.Context) *Result {
	if s.res != nil {
		return &Result{ID: s.res.ID, State: s.res.State, Err: ErrAlreadyRun}
	}
	s.res = &Result{ID: uuid.NewString(), State: Idle, Transitions: []State{Idle}, Counters: map[string]int{}}

	s.run(ctx)
	if s.metrics != nil {
		s.metrics.Observe(s.res)
	}
	return s.res
}

func (s *Session) run(ctx context.Context) {
	res := s.res

	if err := s.transport.Open(); err != nil {
		s.finish(Aborted, fmt.Errorf("failed to open transport: %w", err))
		return
	}
	defer func() {
		if err := s.transport.Close(); err != nil {
			s.logf("Failed to close transport: %v", err)
		}
	}()

	s.logf("Session %s: waiting for %q", res.ID, s.cfg.ReadyMarker)
	s.transition(AwaitingReady)
	if !s.awaitReady(ctx) {
		return
	}

	if _, err := s.transport.Write([]byte(s.cfg.StartCommand + "\n")); err != nil {
		s.finish(Aborted, fmt.Errorf("failed to send start command: %w", err))
		return
	}
	res.StartedAt = time.Now()
	s.transition(Recording)

	ended := s.record(ctx, res.StartedAt.Add(s.cfg.MaxDuration))
	if res.State == Completed && !ended {
		s.drain(ctx)
	}
}

// awaitReady waits for the ready marker. It reports whether the session may proceed.
func (s *Session) awaitReady(ctx context.Context) bool {
	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	for {
		if err := ctx.Err(); err != nil {
			s.abort(ctx)
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			if s.cfg.StrictReady {
				s.finish(TimedOut, fmt.Errorf("%w: no %q within %s", ErrProtocolTimeout, s.cfg.ReadyMarker, s.cfg.ReadyTimeout))
				return false
			}
			s.logf("Warning: no %q within %s, proceeding anyway", s.cfg.ReadyMarker, s.cfg.ReadyTimeout)
			s.res.ReadyMissed = true
			s.transition(Ready)
			return true
		}

		line, err := s.read(remaining)
		if errors.Is(err, daq.ErrReadTimeout) {
			continue
		}
		if err != nil {
			s.finish(Aborted, err)
			return false
		}

		switch s.classifier.Classify(line.Text) {
		case KindReady:
			s.transition(Ready)
			return true
		case KindEmpty:
		default:
			s.logf("Device: %s", line.Text)
		}
	}
}

// record collects lines until completion, deadline, cancellation or a fatal read.
// It reports whether the end-of-data marker was already seen.
func (s *Session) record(ctx context.Context, deadline time.Time) bool {
	res := s.res
	for {
		if err := ctx.Err(); err != nil {
			s.abort(ctx)
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.finish(TimedOut, fmt.Errorf("%w: no %q within %s, %d rows captured",
				ErrProtocolTimeout, s.cfg.CompleteMarker, s.cfg.MaxDuration, len(res.Rows)))
			return false
		}

		line, err := s.read(remaining)
		if errors.Is(err, daq.ErrReadTimeout) {
			continue
		}
		if err != nil {
			s.finish(Aborted, err)
			return false
		}

		switch kind := s.classifier.Classify(line.Text); kind {
		case KindComplete:
			s.finish(Completed, nil)
			return false
		case KindEnd:
			// Some firmware skips the completion marker.
			s.finish(Completed, nil)
			return true
		case KindData:
			res.Rows = append(res.Rows, line)
			if len(res.Rows)%ProgressEvery == 0 {
				s.logf("Recording: %d rows", len(res.Rows))
			}
		case KindHeader:
			if res.Header == "" {
				res.Header = line.Text
			} else {
				res.Discarded++
			}
		case KindCount:
			s.count(line.Text)
		case KindAck:
			s.logf("Device: %s", line.Text)
		case KindEmpty:
		default:
			res.Discarded++
		}
	}
}

// drain reads trailing markers after completion until the end marker or the drain timeout.
func (s *Session) drain(ctx context.Context) {
	deadline := time.Now().Add(s.cfg.DrainTimeout)
	for ctx.Err() == nil {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.logf("No %q within %s after completion", s.cfg.EndMarker, s.cfg.DrainTimeout)
			return
		}

		line, err := s.read(remaining)
		if errors.Is(err, daq.ErrReadTimeout) {
			continue
		}
		if err != nil {
			s.logf("Read after completion failed: %v", err)
			return
		}

		switch s.classifier.Classify(line.Text) {
		case KindEnd:
			return
		case KindCount:
			s.count(line.Text)
		case KindEmpty:
		default:
			s.res.Discarded++
		}
	}
}

func (s *Session) count(text string) {
	label, v, _ := ParseCount(text)
	s.res.Counters[label] = v
	s.logf("Device: %s=%d", label, v)
}

func (s *Session) read(remaining time.Duration) (daq.RawLine, error) {
	return s.transport.ReadLine(min(remaining, s.readTimeout))
}

func (s *Session) abort(ctx context.Context) {
	s.finish(Aborted, fmt.Errorf("%w: %w", ErrAborted, context.Cause(ctx)))
}

func (s *Session) transition(to State) {
	s.res.State = to
	s.res.Transitions = append(s.res.Transitions, to)
}

func (s *Session) finish(to State, err error) {
	s.transition(to)
	s.res.Err = err
	if !s.res.StartedAt.IsZero() {
		s.res.Duration = time.Since(s.res.StartedAt)
	}
	if err != nil {
		s.logf("Session %s: %v", to, err)
	}
}
