package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		httpRequestsTotal,
		httpRequestLatencyMs,
		analyticsReportsTotal,
	)
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpRequestLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_latency_ms",
			Help:    "API request latency distribution in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"route"},
	)

	analyticsReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_reports_total",
			Help: "Analytics report computations by report name.",
		},
		[]string{"report"},
	)
)

func ObserveHTTPRequest(route string, code int, latencyMs int64) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
	httpRequestLatencyMs.WithLabelValues(route).Observe(float64(latencyMs))
}

func IncAnalyticsReport(report string) {
	analyticsReportsTotal.WithLabelValues(report).Inc()
}
