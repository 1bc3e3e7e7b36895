package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nizami/nizami-backend/internal/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	var logs bool
	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := database.RunMigrations(cfg.Database); err != nil {
				return err
			}
			logger.Info("Primary database migrated")

			if logs {
				if !cfg.LogsDatabase.Enabled() {
					return fmt.Errorf("logs_database is not configured")
				}
				if err := database.RunLogsMigrations(cfg.LogsDatabase); err != nil {
					return err
				}
				logger.Info("Logs database migrated")
			}
			return nil
		},
	}
	up.Flags().BoolVar(&logs, "logs", false, "also migrate the LLM exchange log database")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration of the primary database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if err := database.RollbackMigration(cfg.Database); err != nil {
				return err
			}
			logger.Info("Rolled back one migration")
			return nil
		},
	}

	cmd.AddCommand(up, down)
	return cmd
}
