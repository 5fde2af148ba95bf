package guard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GuardAllowed indicates whether new entries are allowed (1) or
	// blocked (0).
	GuardAllowed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_guard_entries_allowed",
		Help: "Whether the balance guard allows new entries (1=allowed, 0=blocked)",
	})

	// GuardBalanceSOL tracks the last checked SOL balance.
	GuardBalanceSOL = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_guard_balance_sol",
		Help: "Last checked wallet SOL balance",
	})

	// GuardStateChanges tracks allowed/blocked transitions.
	GuardStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sniper_guard_state_changes_total",
		Help: "Total number of balance guard state changes",
	})
)
