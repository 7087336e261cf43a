package main

import (
	"context"
	"os"

	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "banking-ledger",
	Short: "Banking ledger HTTP service",
	Long: `banking-ledger keeps account balances, moves money between accounts and
converts balances into other currencies. Running it without a subcommand
starts the HTTP server.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("banking ledger exited with error", err, nil)
		os.Exit(1)
	}
}
