// Package metrics exposes Prometheus counters for document parses and graph
// compiles.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/graph"
)

const namespace = "openspec"

// Recorder holds the studio metrics on its own registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	parsesTotal   *prometheus.CounterVec   // format, status
	parseDuration *prometheus.HistogramVec // format
	compilesTotal *prometheus.CounterVec   // status
	compileTime   prometheus.Histogram
	liveClients   prometheus.Gauge
}

// New creates and registers all metrics, plus the Go runtime collectors.
func New() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		parsesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "parses_total",
			Help:      "Total number of document parses",
		}, []string{"format", "status"}),
		parseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "parse_duration_seconds",
			Help:      "Document parse duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"format"}),
		compilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "compiles_total",
			Help:      "Total number of graph compiles",
		}, []string{"status"}),
		compileTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graph",
			Name:      "compile_duration_seconds",
			Help:      "Graph compile duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "live_clients",
			Help:      "Connected live update clients",
		}),
	}

	for _, c := range []prometheus.Collector{
		r.parsesTotal,
		r.parseDuration,
		r.compilesTotal,
		r.compileTime,
		r.liveClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := r.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveParse implements document.Observer.
func (r *Recorder) ObserveParse(f document.Format, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	format := f.String()
	r.parsesTotal.WithLabelValues(format, status(err)).Inc()
	r.parseDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// ObserveCompile records a graph compile. Compile errors are labelled by
// their code.
func (r *Recorder) ObserveCompile(err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	st := status(err)
	var ce *graph.CompileError
	if errors.As(err, &ce) {
		st = string(ce.Code)
	}
	r.compilesTotal.WithLabelValues(st).Inc()
	r.compileTime.Observe(elapsed.Seconds())
}

// LiveClients adjusts the connected client gauge by delta.
func (r *Recorder) LiveClients(delta int) {
	if r == nil {
		return
	}
	r.liveClients.Add(float64(delta))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
