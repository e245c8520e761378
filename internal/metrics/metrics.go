// Package metrics holds the Prometheus counters of one pipeline run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"
)

// Skip reasons used as label values.
const (
	ReasonUnsupported = "unsupported_kind"
	ReasonMissingAttr = "missing_attribute"
	ReasonInvalidAttr = "invalid_attribute"
	ReasonValidation  = "validation"
	ReasonDropped     = "dropped"
	ReasonMalformed   = "malformed"
)

// Run holds the counters of one run on a private registry, so runs never
// share state.
type Run struct {
	registry *prometheus.Registry

	Elements           *prometheus.CounterVec
	ElementsSkipped    *prometheus.CounterVec
	AnnotationsSkipped *prometheus.CounterVec
	Rows               *prometheus.CounterVec
	Duration           prometheus.Gauge
}

// NewRun registers a fresh set of counters.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Run{
		registry: reg,
		Elements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmw_elements_total",
				Help: "Top-level elements read, by element kind",
			},
			[]string{"kind"},
		),
		ElementsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmw_elements_skipped_total",
				Help: "Elements that produced no rows, by reason",
			},
			[]string{"reason"},
		),
		AnnotationsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmw_annotations_skipped_total",
				Help: "Tags left out of otherwise valid elements, by reason",
			},
			[]string{"reason"},
		),
		Rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "osmw_rows_total",
				Help: "Rows handed to the sink, by table",
			},
			[]string{"table"},
		),
		Duration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "osmw_run_duration_seconds",
				Help: "Wall time of the run",
			},
		),
	}
}

// ObserveDuration records the run's wall time.
func (r *Run) ObserveDuration(d time.Duration) {
	r.Duration.Set(d.Seconds())
}

// Registry exposes the run's registry as a Gatherer.
func (r *Run) Registry() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the counters in the Prometheus text format, suitable
// for the node_exporter textfile collector.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return eris.Wrapf(err, "metrics: write %s", path)
	}
	return nil
}
