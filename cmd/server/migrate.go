package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/pkg/database"
	applogger "github.com/jhenkens/bear-valley-run-checks/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(run migrationRunner) error { return run.up() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1 step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		return withDB(func(run migrationRunner) error { return run.down(steps) })
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
}

type migrationRunner struct {
	up   func() error
	down func(steps int) error
}

func withDB(fn func(migrationRunner) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, false, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	err = fn(migrationRunner{
		up:   func() error { return database.RunMigrations(sqlDB, logger) },
		down: func(steps int) error { return database.RollbackMigrations(sqlDB, steps, logger) },
	})
	if err != nil {
		logger.Error("migration failed", zap.Error(err))
	}
	return err
}
