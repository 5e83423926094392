package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapgate_admission_decisions_total",
		Help: "Admission decisions by result and reason",
	}, []string{"result", "reason"})

	ValidatorRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapgate_validator_rejects_total",
		Help: "Orders rejected per validator, including fail-closed errors",
	}, []string{"validator", "cause"})

	ChainInits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapgate_chain_init_total",
		Help: "Chain-scoped validator initializations by outcome",
	}, []string{"chain_id", "outcome"})

	BudgetSpentUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapgate_budget_spent_usd",
		Help: "USD currently reserved for unconfirmed orders",
	})

	BudgetExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapgate_budget_exceeded_total",
		Help: "Reservations refused because they would breach the ceiling",
	})

	SlippageUnresolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapgate_slippage_unresolved_total",
		Help: "Slippage lookups that found no applicable configuration",
	})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
