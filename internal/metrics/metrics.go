// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WFSRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redvial_wfs_requests_total",
		Help: "WFS GetFeature requests by layer and outcome",
	}, []string{"layer", "outcome"})
	WFSDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redvial_wfs_duration_seconds",
		Help:    "WFS GetFeature duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"layer"})
	LayerLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redvial_layer_loads_total",
		Help: "Dataset loads by outcome",
	}, []string{"outcome"})
	AggregationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redvial_aggregations_total",
		Help: "Per-canton aggregations computed, by category",
	}, []string{"category"})
	StatRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redvial_stat_requests_total",
		Help: "Stat table requests, served from memo or computed",
	})
	AggregationDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redvial_aggregation_duration_seconds",
		Help:    "Duration of one category aggregation in seconds",
		Buckets: prometheus.DefBuckets,
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "redvial_active_sessions",
		Help: "Sessions currently held in memory",
	})
)

func init() {
	prometheus.MustRegister(WFSRequestsTotal)
	prometheus.MustRegister(WFSDurationSeconds)
	prometheus.MustRegister(LayerLoadsTotal)
	prometheus.MustRegister(AggregationsTotal)
	prometheus.MustRegister(StatRequestsTotal)
	prometheus.MustRegister(AggregationDurationSeconds)
	prometheus.MustRegister(ActiveSessions)
}

// Handler exposes the registered collectors.
func Handler() http.Handler { return promhttp.Handler() }
