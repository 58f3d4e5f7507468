// Package metrics holds the ledger's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "decisions_total",
		Help:      "Approval decisions by transaction type, decision and outcome.",
	}, []string{"type", "decision", "outcome"})

	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "submissions_total",
		Help:      "Deposit and withdrawal requests by type and outcome.",
	}, []string{"type", "outcome"})

	InvestmentsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "investments_opened_total",
		Help:      "Investment open attempts by outcome.",
	}, []string{"outcome"})

	AccrualInvestments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "accrual_investments_total",
		Help:      "Investments visited by accrual runs, by result.",
	}, []string{"result"})

	AccrualRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "accrual_runs_total",
		Help:      "Scheduled accrual runs by outcome.",
	}, []string{"outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})
)
