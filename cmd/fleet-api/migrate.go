package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/fleet-service-api/pkg/config"
	"github.com/noah-isme/fleet-service-api/pkg/database"
	"github.com/noah-isme/fleet-service-api/pkg/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		Long: `Creates the technicians, service_requests, schedule_blocks, activity_log
and inventory tables if they do not exist. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()

			return database.Migrate(cmd.Context(), db, logr)
		},
	}
}
