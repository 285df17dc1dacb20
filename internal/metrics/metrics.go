// Package metrics exposes reconciliation counters through Prometheus, either
// scraped from the status server or pushed to a Pushgateway after a run.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Record outcomes.
const (
	OutcomeProcessed  = "processed"
	OutcomeSkipped    = "skipped"
	OutcomeUnresolved = "unresolved"
	OutcomeDropped    = "dropped"
	OutcomeInserted   = "inserted"
	OutcomeUpserted   = "upserted"
	OutcomeDeleted    = "deleted"
	OutcomeReset      = "reset"
)

// Recorder owns a private registry with the reconciliation collectors.
// A nil *Recorder discards everything.
type Recorder struct {
	reg           *prometheus.Registry
	recordCounter *prometheus.CounterVec
	batchCounter  *prometheus.CounterVec
	runCounter    *prometheus.CounterVec
	phaseDuration *prometheus.SummaryVec
}

// New registers the collectors on a fresh registry.
func New() (*Recorder, error) {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		reg: reg,
		recordCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosync_records_total",
				Help: "Records per entity kind and outcome (processed, skipped, inserted, deleted, ...).",
			},
			[]string{"kind", "outcome"},
		),
		batchCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosync_batches_total",
				Help: "Bulk statements flushed per entity kind.",
			},
			[]string{"kind"},
		),
		runCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "geosync_runs_total",
				Help: "Reconciliation runs per mode and status.",
			},
			[]string{"mode", "status"},
		),
		phaseDuration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "geosync_phase_duration_seconds",
				Help:       "Duration of reconciliation phases in seconds.",
				Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
			},
			[]string{"kind", "phase", "status"},
		),
	}

	for _, c := range []prometheus.Collector{r.recordCounter, r.batchCounter, r.runCounter, r.phaseDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register collector: %w", err)
		}
	}
	return r, nil
}

// MustNew is New for process start-up code.
func MustNew() *Recorder {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// RegisterRuntime adds the Go runtime and process collectors, used by the
// long-running status server.
func (r *Recorder) RegisterRuntime() error {
	if r == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.reg.Register(c); err != nil {
			return fmt.Errorf("metrics: register runtime collector: %w", err)
		}
	}
	return nil
}

// Records adds n records of kind with the given outcome.
func (r *Recorder) Records(kind, outcome string, n int64) {
	if r == nil || n <= 0 {
		return
	}
	r.recordCounter.WithLabelValues(kind, outcome).Add(float64(n))
}

// Batch counts one flushed bulk statement.
func (r *Recorder) Batch(kind string) {
	if r == nil {
		return
	}
	r.batchCounter.WithLabelValues(kind).Inc()
}

// Run counts a finished run.
func (r *Recorder) Run(mode, status string) {
	if r == nil {
		return
	}
	r.runCounter.WithLabelValues(mode, status).Inc()
}

// ObservePhase records how long a phase of kind took.
func (r *Recorder) ObservePhase(kind, phase, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.WithLabelValues(kind, phase, status).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Push sends the registry to a Pushgateway under job.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if r == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", gatewayURL, err)
	}
	return nil
}
