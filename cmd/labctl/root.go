package main

import (
	"context"
	"fmt"
	"time"

	"lab-scheduler/internal/app"
	"lab-scheduler/internal/config"
	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "labctl",
		Short: "Operate the lab scheduling service",
		Long: `labctl runs the maintenance tasks of the lab scheduling service against
the database named by the DB_* environment (an optional .env is loaded first).`,
		SilenceUsage: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newRefreshCmd())
	return root
}

// env loads config and the logger shared by every subcommand.
func env() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, app.NewLogger(cfg.App), nil
}

func connect(cmd *cobra.Command, cfg config.Config, logger logrus.FieldLogger) (database.DB, error) {
	if cfg.App.Store != config.StorePostgres {
		return nil, fmt.Errorf("%s needs STORE=postgres", cmd.Name())
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	db, err := dbpostgres.Connect(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
