package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal tracks completed supervision cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_watcher_cycles_total",
		Help: "Total number of position supervision cycles",
	})

	// PriceFetchFailuresTotal tracks skipped position checks due to price
	// feed failures.
	PriceFetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_watcher_price_fetch_failures_total",
		Help: "Total number of price fetch failures during supervision",
	})

	// ExitTriggersTotal tracks tripped exit thresholds by reason.
	ExitTriggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_watcher_exit_triggers_total",
		Help: "Total number of exit triggers by reason",
	}, []string{"reason"})

	// ExitsTotal tracks exit attempts by reason and outcome.
	ExitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_watcher_exits_total",
		Help: "Total number of exit attempts by reason and outcome",
	}, []string{"reason", "outcome"})
)
