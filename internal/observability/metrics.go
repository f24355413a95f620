package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for service self-monitoring.
// It uses a custom registry to avoid polluting the global default.
type Metrics struct {
	Registry *prometheus.Registry

	// Poll metrics
	PollDuration *prometheus.HistogramVec
	PollTotal    *prometheus.CounterVec
	PollerPaused *prometheus.GaugeVec

	// Telemetry client metrics
	TelemetryRequestDuration *prometheus.HistogramVec
	TelemetryResponseBytes   *prometheus.HistogramVec

	// Store metrics
	StoreItems *prometheus.GaugeVec

	// Cluster utilization, as fractions in [0, 1]
	ClusterGPUs            prometheus.Gauge
	ClusterGPUUtilization  prometheus.Gauge
	ClusterGRAMUtilization prometheus.Gauge

	// API metrics
	APIRequestsTotal *prometheus.CounterVec
	StreamClients    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all Prometheus metrics
// registered on a custom registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	sizeBuckets := prometheus.ExponentialBuckets(1024, 4, 10)

	m := &Metrics{
		Registry: reg,

		PollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterview_poll_duration_seconds",
			Help:    "Duration of telemetry polls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"poller"}),
		PollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterview_poll_total",
			Help: "Total number of telemetry polls.",
		}, []string{"poller", "status"}),
		PollerPaused: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clusterview_poller_paused",
			Help: "Whether a poller is paused (1 = paused, 0 = active).",
		}, []string{"poller"}),

		TelemetryRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterview_telemetry_request_duration_seconds",
			Help:    "Duration of telemetry API requests in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TelemetryResponseBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clusterview_telemetry_response_bytes",
			Help:    "Size of telemetry API response bodies in bytes.",
			Buckets: sizeBuckets,
		}, []string{"endpoint"}),

		StoreItems: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clusterview_store_items",
			Help: "Current number of items in the store.",
		}, []string{"resource"}),

		ClusterGPUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clusterview_cluster_gpus",
			Help: "Number of GPUs in the latest node snapshot.",
		}),
		ClusterGPUUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clusterview_cluster_gpu_utilization_ratio",
			Help: "GPU-count weighted cluster GPU utilization.",
		}),
		ClusterGRAMUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clusterview_cluster_gram_utilization_ratio",
			Help: "GPU-count weighted cluster GPU memory utilization.",
		}),

		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clusterview_api_requests_total",
			Help: "Total number of view API requests.",
		}, []string{"route", "code"}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clusterview_stream_clients",
			Help: "Current number of connected stream clients.",
		}),
	}

	reg.MustRegister(
		m.PollDuration,
		m.PollTotal,
		m.PollerPaused,
		m.TelemetryRequestDuration,
		m.TelemetryResponseBytes,
		m.StoreItems,
		m.ClusterGPUs,
		m.ClusterGPUUtilization,
		m.ClusterGRAMUtilization,
		m.APIRequestsTotal,
		m.StreamClients,
	)

	return m
}
