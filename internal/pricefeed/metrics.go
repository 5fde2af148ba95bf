package pricefeed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDurationSeconds tracks price lookup latency.
	RequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniper_pricefeed_request_duration_seconds",
		Help:    "Duration of price feed requests",
		Buckets: prometheus.DefBuckets,
	})

	// RequestErrorsTotal tracks failed price lookups.
	RequestErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_pricefeed_request_errors_total",
		Help: "Total number of failed price feed requests",
	})
)
