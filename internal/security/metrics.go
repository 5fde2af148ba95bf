package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ChecksTotal tracks security gate evaluations by outcome.
var ChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sniper_security_checks_total",
		Help: "Total number of mint security checks by outcome",
	},
	[]string{"outcome"},
)
