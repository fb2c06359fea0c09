package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	XPGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_xp_granted_total",
			Help: "Total XP granted, by source",
		},
		[]string{"source"},
	)
	LevelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_level_ups_total",
			Help: "Total level-up events",
		},
	)
	Airdrops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_airdrops_total",
			Help: "Total one-time airdrops transferred",
		},
	)
	TokensPaid = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_tokens_paid_total",
			Help: "Total reward tokens paid out, by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(XPGranted)
	prometheus.MustRegister(LevelUps)
	prometheus.MustRegister(Airdrops)
	prometheus.MustRegister(TokensPaid)
}
