package main

import (
	"time"

	"lab-scheduler/internal/database/seeder"

	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert lab reference data",
		Long: `Insert the reference skills, technicians, equipment, materials and work
orders. Rows are keyed by stable ids and codes, so running it again changes nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := env()
			if err != nil {
				return err
			}
			db, err := connect(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			runner := seeder.Runner{Seeders: seeder.Defaults(time.Now()), Logger: logger}
			return runner.Run(cmd.Context(), db)
		},
	}
}
