package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommissionsDistributed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "commissions_distributed_total",
			Help: "Total number of purchases run through commission distribution",
		},
	)

	BonusesCredited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bonuses_credited_total",
			Help: "Total number of bonus credits by kind",
		},
		[]string{"kind", "currency"},
	)

	PayoutTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_transitions_total",
			Help: "Total number of payout state transitions",
		},
		[]string{"status"},
	)
)
