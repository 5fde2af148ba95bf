package solana

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCRequestDurationSeconds tracks RPC latency per method.
	RPCRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sniper_rpc_request_duration_seconds",
			Help:    "Duration of Solana RPC requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// RPCErrorsTotal tracks RPC failures per method.
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_rpc_errors_total",
			Help: "Total number of Solana RPC errors",
		},
		[]string{"method"},
	)
)
