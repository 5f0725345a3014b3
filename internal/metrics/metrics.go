package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"residence-backend/internal/allocation"
)

const namespace = "residence"

// Recorder exposes allocation and HTTP metrics on a private registry.
// A nil *Recorder discards every observation.
type Recorder struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	beds       *prometheus.GaugeVec
	rooms      prometheus.Gauge
	rate       prometheus.Gauge
	requests   *prometheus.CounterVec
}

// NewRecorder registers the collectors, including the Go runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Allocation operations by name and outcome.",
		}, []string{"op", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Allocation operation latency including the snapshot reload.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		beds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beds",
			Help:      "Beds in the current snapshot by state.",
		}, []string{"state"}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms in the current snapshot.",
		}),
		rate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "occupancy_ratio",
			Help:      "Occupied share of active beds.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
	}
	r.registry.MustRegister(
		r.operations, r.latency, r.beds, r.rooms, r.rate, r.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOperation counts one engine operation.
func (r *Recorder) ObserveOperation(op, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, outcome).Inc()
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveOccupancy sets the bed gauges from a fresh snapshot.
func (r *Recorder) ObserveOccupancy(stats allocation.OccupancyStats) {
	if r == nil {
		return
	}
	r.beds.WithLabelValues("occupied").Set(float64(stats.Occupied))
	r.beds.WithLabelValues("available").Set(float64(stats.Available))
	r.beds.WithLabelValues("inactive").Set(float64(stats.Inactive))
	r.rooms.Set(float64(len(stats.Rooms)))
	r.rate.Set(stats.Rate)
}

// ObserveRequest counts one HTTP request.
func (r *Recorder) ObserveRequest(method, route string, code int) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
