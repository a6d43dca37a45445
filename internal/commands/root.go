// Package commands wires the bookkeep CLI: data entry for accounts, flows,
// and transfers, plus the administrative maintenance triggers for loan
// migration, consolidation, and balance repair.
package commands

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mmynk/bookkeep/internal/config"
	"github.com/mmynk/bookkeep/internal/metrics"
	"github.com/mmynk/bookkeep/internal/storage/sqlite"
	"github.com/mmynk/bookkeep/pkg/logging"
)

// app carries the flag/config state shared by every subcommand.
type app struct {
	cfg config.Config

	dbPath      string
	userID      string
	bookID      string
	metricsAddr string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "bookkeep",
		Short: "Household bookkeeping ledger with a unified transfer engine",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.SetupNamed(cfg.LogLevel)
			if a.dbPath == "" {
				a.dbPath = cfg.DBPath
			}
			if a.bookID == "" {
				a.bookID = cfg.DefaultBook
			}
			if a.metricsAddr == "" {
				a.metricsAddr = cfg.MetricsAddr
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the ledger database (default from DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&a.userID, "user", "default", "user the operation runs as")
	rootCmd.PersistentFlags().StringVar(&a.bookID, "book", "", "book new entries are recorded in (default from DEFAULT_BOOK)")
	rootCmd.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")

	rootCmd.AddCommand(
		newAccountCommand(a),
		newFlowCommand(a),
		newTransferCommand(a),
		newLoansCommand(a),
		newCheckCommand(a),
		newRecalcCommand(a),
	)

	return rootCmd
}

// openStore opens the SQLite-backed ledger store.
func (a *app) openStore() (*sqlite.SQLiteStore, error) {
	return sqlite.New(a.dbPath)
}

// serveMetrics starts the Prometheus listener when --metrics-addr is set
// and returns a shutdown func. Maintenance runs are long enough that a
// scraper can see their counters move.
func (a *app) serveMetrics() func() {
	if a.metricsAddr == "" {
		return func() {}
	}
	srv := &http.Server{Addr: a.metricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", a.metricsAddr)
	return func() { srv.Close() }
}
