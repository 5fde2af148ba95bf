package swap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SwapsTotal tracks swap attempts by direction and outcome.
	SwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_swap_total",
			Help: "Total number of swap attempts",
		},
		[]string{"direction", "outcome"},
	)

	// StageErrorsTotal tracks failures per protocol stage.
	StageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_swap_stage_errors_total",
			Help: "Total number of swap failures by protocol stage",
		},
		[]string{"stage"},
	)

	// AmbiguousOutcomesTotal tracks confirmation timeouts left unresolved
	// after reconciliation.
	AmbiguousOutcomesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_swap_ambiguous_outcomes_total",
		Help: "Total number of submitted transactions with unresolved confirmation",
	})

	// SwapDurationSeconds tracks end-to-end swap latency.
	SwapDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniper_swap_duration_seconds",
		Help:    "Duration of the full quote-to-confirm swap protocol",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
	})
)
