package main

import (
	"github.com/spf13/cobra"

	"github.com/rpattn/visadesk/internal/db"
)

var rollbackSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.RunMigrations(cfg.Database)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back applied migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.RollbackMigrations(cfg.Database, rollbackSteps)
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&rollbackSteps, "steps", 1, "Number of migrations to roll back")
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}
