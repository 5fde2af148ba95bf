package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesAppendedTotal tracks appended trade records.
	TradesAppendedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_ledger_trades_appended_total",
			Help: "Total number of trade records appended to the ledger",
		},
		[]string{"type", "status"},
	)

	// WriteErrorsTotal tracks ledger persistence failures.
	WriteErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_ledger_write_errors_total",
			Help: "Total number of ledger write failures",
		},
		[]string{"backend"},
	)

	// OpenPositions tracks the size of the open-position map.
	OpenPositions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_ledger_open_positions",
		Help: "Number of currently open positions",
	})
)
