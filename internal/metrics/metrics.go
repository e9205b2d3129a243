package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dengbej/internal/services"
)

const namespace = "dengbej"

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	stages       *prometheus.HistogramVec
	uploadBytes  prometheus.Histogram
	inFlight     prometheus.Gauge
	sweepRemoved *prometheus.CounterVec
	sweepBytes   prometheus.Counter
}

// New registers the service collectors plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Finished dubbing requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"kind"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of individual pipeline stages.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 600},
		}, []string{"stage"}),
		uploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_bytes",
			Help:      "Size of accepted uploads.",
			Buckets:   prometheus.ExponentialBuckets(64<<10, 4, 8),
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Requests currently being processed.",
		}),
		sweepRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_removed_files_total",
			Help:      "Files deleted by the cleanup sweep.",
		}, []string{"area"}),
		sweepBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_removed_bytes_total",
			Help:      "Bytes freed by the cleanup sweep.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.stages,
		m.uploadBytes,
		m.inFlight,
		m.sweepRemoved,
		m.sweepBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RequestStarted marks a request as in flight.
func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RequestFinished records the outcome of a request. The outcome label is the
// error kind, or "ok".
func (m *Metrics) RequestFinished(kind string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = services.Kind(err)
	}
	m.inFlight.Dec()
	m.requests.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// StageFinished records how long a pipeline stage took.
func (m *Metrics) StageFinished(stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// UploadReceived records the size of an accepted upload.
func (m *Metrics) UploadReceived(size int64) {
	if m == nil {
		return
	}
	m.uploadBytes.Observe(float64(size))
}

// SweepFinished records files removed by one sweep area (scratch or outputs).
func (m *Metrics) SweepFinished(area string, removed int, bytes int64) {
	if m == nil {
		return
	}
	m.sweepRemoved.WithLabelValues(area).Add(float64(removed))
	m.sweepBytes.Add(float64(bytes))
}
