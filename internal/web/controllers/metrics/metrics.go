package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalRegistry *prometheus.Registry
	globalMetrics  *exporterMetrics
)

func init() {
	globalRegistry = prometheus.NewRegistry()
	globalMetrics = newExporterMetrics(globalRegistry)
}

// exporterMetrics are the exporter's own process-wide metrics, separate
// from any probe's sample set.
type exporterMetrics struct {
	probesTotal    *prometheus.CounterVec
	probeDuration  *prometheus.HistogramVec
	probesInFlight prometheus.Gauge
}

func newExporterMetrics(reg prometheus.Registerer) *exporterMetrics {
	m := &exporterMetrics{
		probesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commvault_exporter_probes_total",
				Help: "Number of probes handled, by target and outcome",
			},
			[]string{"target", "success"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commvault_exporter_probe_duration_seconds",
				Help:    "Wall-clock duration of probe collection",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target"},
		),
		probesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "commvault_exporter_probes_in_flight",
			Help: "Number of probes currently being collected",
		}),
	}

	reg.MustRegister(
		m.probesTotal,
		m.probeDuration,
		m.probesInFlight,
	)

	return m
}

// Handler serves the exporter's own metrics.
func Handler() http.HandlerFunc {
	handler := promhttp.HandlerFor(globalRegistry, promhttp.HandlerOpts{
		Registry: globalRegistry,
	})
	return handler.ServeHTTP
}

// ProbeStarted marks a probe as in flight.
func ProbeStarted() {
	globalMetrics.probesInFlight.Inc()
}

// ProbeFinished records the outcome and duration of a completed probe.
func ProbeFinished(target string, success bool, seconds float64) {
	globalMetrics.probesInFlight.Dec()
	globalMetrics.probesTotal.WithLabelValues(target, strconv.FormatBool(success)).Inc()
	globalMetrics.probeDuration.WithLabelValues(target).Observe(seconds)
}
