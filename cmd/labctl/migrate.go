package main

import (
	"lab-scheduler/internal/database/migration"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Long: `Apply every V<n>__<name>.sql migration not yet recorded in schema_migrations.

The embedded migrations are used unless --dir (or DB_MIGRATIONS_DIR) names a directory.`,
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

			if dir == "" {
				dir = cfg.Database.MigrationsDir
			}
			runner := migration.Runner{Dir: dir, Logger: logger.WithField("component", "migration")}
			if err := runner.Run(cmd.Context(), db.SQLDB()); err != nil {
				return err
			}
			logger.Info("migrations up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of migration files")
	return cmd
}
