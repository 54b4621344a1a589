// metrics.go - Prometheus metrics for shieldd.
package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	proveTotal     *prometheus.CounterVec
	proveDuration  prometheus.Histogram
	proveInflight  prometheus.Gauge
	verifyTotal    *prometheus.CounterVec
	requestsDenied prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		proveTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shieldd",
			Name:      "prove_total",
			Help:      "Proving runs by outcome.",
		}, []string{"outcome"}),
		proveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shieldd",
			Name:      "prove_duration_seconds",
			Help:      "Wall time of successful proving runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		proveInflight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "shieldd",
			Name:      "prove_inflight",
			Help:      "Proving runs currently executing or queued.",
		}),
		verifyTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shieldd",
			Name:      "verify_total",
			Help:      "Receipt verifications by outcome.",
		}, []string{"outcome"}),
		requestsDenied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shieldd",
			Name:      "requests_denied_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}
