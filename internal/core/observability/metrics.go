package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geoalign"

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Engine operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	operationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine operations in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~33s
		},
		[]string{"op"},
	)

	cellsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_indexed_total",
			Help:      "H3 cells produced while indexing features.",
		},
		[]string{"role"},
	)

	crosswalkCoverage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "crosswalk_coverage",
			Help:      "Coverage of the most recent crosswalk, in [0,1].",
		},
	)

	compactnessScore = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compactness_score",
			Help:      "Distribution of compactness scores by measure.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"measure"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
)

// Collectors returns every collector owned by this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		operationsTotal,
		operationDurationSeconds,
		cellsIndexedTotal,
		crosswalkCoverage,
		compactnessScore,
		httpRequestsTotal,
	}
}

func ObserveOperation(op, outcome string, durationSeconds float64) {
	operationsTotal.WithLabelValues(op, outcome).Inc()
	operationDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func AddCellsIndexed(role string, n int) {
	if n <= 0 {
		return
	}
	cellsIndexedTotal.WithLabelValues(role).Add(float64(n))
}

func SetCrosswalkCoverage(v float64) {
	crosswalkCoverage.Set(v)
}

func ObserveCompactness(measure string, score float64) {
	compactnessScore.WithLabelValues(measure).Observe(score)
}

func ObserveHTTP(method, route string, status int) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
