// Package metrics exposes controller measurements to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gridctl"

// Recorder holds the gridctl collectors on a private registry so that
// several recorders can exist in one process (tests, mainly).
type Recorder struct {
	registry *prometheus.Registry

	invocations     *prometheus.CounterVec
	resourcePercent *prometheus.GaugeVec
	resourceStored  *prometheus.GaugeVec
	transfers       *prometheus.CounterVec
}

// New creates a Recorder with Go runtime and process collectors registered
// alongside the gridctl metrics.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Dispatched invocations by command and result.",
			},
			[]string{"command", "result"},
		),
		resourcePercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resource_percent",
				Help:      "Last aggregated fill percentage by resource class.",
			},
			[]string{"class"},
		),
		resourceStored: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resource_stored",
				Help:      "Last aggregated stored amount and capacity by resource class.",
			},
			[]string{"class", "measure"},
		),
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Attempted inventory transfers by result.",
			},
			[]string{"result"},
		),
	}

	r.registry.MustRegister(
		r.invocations,
		r.resourcePercent,
		r.resourceStored,
		r.transfers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// RecordResource sets the gauges for one aggregated resource class.
func (r *Recorder) RecordResource(class string, capacity, current, percent float64) {
	r.resourcePercent.WithLabelValues(class).Set(percent)
	r.resourceStored.WithLabelValues(class, "capacity").Set(capacity)
	r.resourceStored.WithLabelValues(class, "current").Set(current)
}

// RecordTransfer counts one transfer attempt. Source and subtype are not
// used as labels to keep cardinality bounded.
func (r *Recorder) RecordTransfer(_, _ string, success bool) {
	r.transfers.WithLabelValues(result(success)).Inc()
}

// RecordCommand counts one dispatched invocation.
func (r *Recorder) RecordCommand(command string, success bool) {
	r.invocations.WithLabelValues(command, result(success)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
