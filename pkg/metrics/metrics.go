package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SettlementsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novaland_settlements_submitted_total",
		Help: "Transfers handed to the ledger by the settlement coordinator.",
	})

	SettlementOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novaland_settlement_outcomes_total",
		Help: "Terminal settlement outcomes by ledger result.",
	}, []string{"outcome"})

	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novaland_reconcile_runs_total",
		Help: "Completed reconciliation sweeps.",
	})

	ReconcileHeals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novaland_reconcile_heals_total",
		Help: "Settling offers committed or released by the reconciliation worker.",
	})

	ReconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novaland_reconcile_failures_total",
		Help: "Reconciliation attempts that could not reach the store or ledger.",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
