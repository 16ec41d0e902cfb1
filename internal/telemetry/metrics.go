// Package telemetry exposes kpulse's own metrics: how the metrics backend
// is behaving and how full each chart buffer is.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kpulse"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	chartPoints     *prometheus.GaugeVec
	chartSeries     *prometheus.GaugeVec
}

// NewMetrics creates and registers the kpulse collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total metrics backend requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Histogram of metrics backend request durations by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		chartPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chart_points",
			Help:      "Points currently buffered per chart.",
		}, []string{"chart"}),
		chartSeries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chart_series",
			Help:      "Known series per chart.",
		}, []string{"chart"}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.chartPoints,
		m.chartSeries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records one backend request.
func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveChart records the buffer size of a chart.
func (m *Metrics) ObserveChart(chart string, points, series int) {
	m.chartPoints.WithLabelValues(chart).Set(float64(points))
	m.chartSeries.WithLabelValues(chart).Set(float64(series))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
