// Package telemetry mirrors recorded outcomes into Prometheus metrics.
package telemetry

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"camstress/internal/core"
)

const namespace = "camstress"

// Exporter is a core.Recorder backed by a private Prometheus registry, so
// concurrent runs in one process never share series.
type Exporter struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewExporter creates an Exporter with its own registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Classified request attempts by probe and outcome",
			},
			[]string{"probe", "outcome"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failed request attempts by probe and failure tag",
			},
			[]string{"probe", "tag"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Latency of successful request attempts",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"probe"},
		),
	}
	e.registry.MustRegister(e.requests, e.failures, e.duration)
	return e
}

// Record implements core.Recorder.
func (e *Exporter) Record(o core.Outcome) {
	e.requests.WithLabelValues(o.Probe, o.Kind.String()).Inc()
	switch o.Kind {
	case core.KindSuccess:
		e.duration.WithLabelValues(o.Probe).Observe(o.Latency.Seconds())
	case core.KindFailure:
		e.failures.WithLabelValues(o.Probe, o.Tag).Inc()
	}
}

// WriteText writes every metric family in the Prometheus text format.
func (e *Exporter) WriteText(w io.Writer) error {
	families, err := e.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the text exposition to path, replacing any existing file.
func (e *Exporter) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	if err := e.WriteText(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
