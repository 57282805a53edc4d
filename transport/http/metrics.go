package http

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gate's Prometheus collectors
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	logins   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensegate",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "licensegate",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "licensegate",
			Name:      "logins_total",
			Help:      "Wallet login attempts by response status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.requests, m.latency, m.logins)
	return m
}

func (m *Metrics) login(status int) {
	m.logins.WithLabelValues(strconv.Itoa(status)).Inc()
}
