// Package metrics exposes Prometheus counters for ledger operations.
// The CLI serves them on --metrics-addr while maintenance commands run.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TransfersCreated counts transfer pairs written by the engine.
	TransfersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookkeep_transfers_created_total",
		Help: "Number of transfer pairs created.",
	})

	// TransfersDeleted counts transfer pairs removed by the engine.
	TransfersDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookkeep_transfers_deleted_total",
		Help: "Number of transfer pairs deleted.",
	})

	// AmbiguousRepairs counts operations that hit an inconsistent pair
	// and fell back to ledger-derived balance repair.
	AmbiguousRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookkeep_ambiguous_repairs_total",
		Help: "Number of operations that detected an inconsistent transfer pair and repaired the affected accounts.",
	})

	// BalanceRepairs counts cached balances overwritten from the ledger.
	BalanceRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookkeep_balance_repairs_total",
		Help: "Number of account balances recomputed and overwritten from the ledger.",
	})

	// LoanPairsLinked counts legacy loan flow pairs converted into
	// unified transfers.
	LoanPairsLinked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookkeep_loan_pairs_linked_total",
		Help: "Number of legacy loan flow pairs converted into transfers.",
	})

	// LoanDuplicatesMerged counts redundant loan transfers collapsed
	// into their canonical record.
	LoanDuplicatesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookkeep_loan_duplicates_merged_total",
		Help: "Number of duplicate loan transfers merged away.",
	})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
