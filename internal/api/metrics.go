package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are registered per server so tests can build several servers.
type Metrics struct {
	registry *prometheus.Registry

	// queriesTotal counts answered point queries.
	// Labels: endpoint, region.
	queriesTotal *prometheus.CounterVec

	// rejectedTotal counts refused requests.
	// Labels: endpoint, reason ("out_of_range", "bad_request", "rate_limited").
	rejectedTotal *prometheus.CounterVec

	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		queriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaselever_queries_total",
			Help: "Point queries answered, by endpoint and phase region",
		}, []string{"endpoint", "region"}),
		rejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "phaselever_rejected_total",
			Help: "Requests refused, by endpoint and reason",
		}, []string{"endpoint", "reason"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phaselever_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}, []string{"endpoint"}),
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		m.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}
