package session

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are per-process acquisition counters. A CLI run exports them with
// prometheus.WriteToTextfile so a node exporter can pick them up.
type Metrics struct {
	Sessions       *prometheus.CounterVec
	RowsCaptured   prometheus.Counter
	LinesDiscarded prometheus.Counter
	ReadyMissed    prometheus.Counter
	Duration       prometheus.Histogram
	LastRows       prometheus.Gauge
}

// NewMetrics creates the session metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Sessions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "godaq",
				Subsystem: "session",
				Name:      "total",
				Help:      "Sessions run, by terminal state",
			},
			[]string{"state"},
		),
		RowsCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "godaq",
			Subsystem: "session",
			Name:      "rows_captured_total",
			Help:      "Data rows buffered across all sessions",
		}),
		LinesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "godaq",
			Subsystem: "session",
			Name:      "lines_discarded_total",
			Help:      "Lines received while recording that were neither data nor markers",
		}),
		ReadyMissed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "godaq",
			Subsystem: "session",
			Name:      "ready_missed_total",
			Help:      "Sessions that proceeded without seeing the ready marker",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "godaq",
			Subsystem: "session",
			Name:      "recording_seconds",
			Help:      "Time from start command to terminal state",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}),
		LastRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "godaq",
			Subsystem: "session",
			Name:      "last_rows",
			Help:      "Rows captured by the most recent session",
		}),
	}

	for _, c := range []prometheus.Collector{m.Sessions, m.RowsCaptured, m.LinesDiscarded, m.ReadyMissed, m.Duration, m.LastRows} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register session metrics: %w", err)
		}
	}

	return m, nil
}

// Observe records the outcome of one session.
func (m *Metrics) Observe(res *Result) {
	m.Sessions.WithLabelValues(res.State.String()).Inc()
	m.RowsCaptured.Add(float64(len(res.Rows)))
	m.LinesDiscarded.Add(float64(res.Discarded))
	if res.ReadyMissed {
		m.ReadyMissed.Inc()
	}
	if !res.StartedAt.IsZero() {
		m.Duration.Observe(res.Duration.Seconds())
	}
	m.LastRows.Set(float64(len(res.Rows)))
}
