package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesTotal tracks entry attempts by outcome.
	EntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_executor_entries_total",
		Help: "Total number of entry attempts by outcome",
	}, []string{"outcome"})

	// EntryDurationSeconds tracks end-to-end entry latency.
	EntryDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniper_executor_entry_duration_seconds",
		Help:    "Duration of entry attempts",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)
