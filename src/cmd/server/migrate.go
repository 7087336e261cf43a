package main

import (
	"context"
	"fmt"
	"os"

	"github.com/api-sage/banking-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/banking-ledger/src/internal/config"
	"github.com/api-sage/banking-ledger/src/internal/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending postgres migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(os.Stdout, cfg.IsDevelopment())

	ctx, cancel := context.WithTimeout(cmd.Context(), startupTimeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(ctx, db, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("initial migrations completed successfully", logger.Fields{
		"applied": applied,
	})
	return nil
}
