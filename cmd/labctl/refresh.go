package main

import (
	"fmt"

	"lab-scheduler/internal/app"
	"lab-scheduler/internal/infrastructure/cache"
	"lab-scheduler/internal/worker"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "refresh-priorities",
		Short: "Recompute the stored priority of every open work order",
		Long: `Recompute priority score and level for open work orders once and drop the
cached queue. The run takes the same Redis lock as the server's refresher, so it is
skipped while a server replica is refreshing.`,
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

			redis := cache.NewRedis(cfg.Redis, logger)
			defer func() { _ = redis.Close() }()

			uc := app.NewUsecases(cfg, app.PostgresRepositories(db), redis, logger)
			if workers <= 0 {
				workers = cfg.Engine.PriorityRefreshWorkers
			}
			refresher := worker.NewPriorityRefresher(uc.WorkOrders, redis, worker.RefresherConfig{
				Interval:      cfg.Engine.PriorityRefreshEvery,
				Workers:       workers,
				RatePerSecond: cfg.Engine.PriorityRefreshRate,
			}, logger)

			stats, err := refresher.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if stats.Skipped {
				logger.Warn("refresh skipped: lock held by another instance")
				return nil
			}
			logger.WithFields(logrus.Fields{"work_orders": stats.WorkOrders, "updated": stats.Updated}).Info("priorities refreshed")
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %d of %d work orders\n", stats.Updated, stats.WorkOrders)
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent batches (default PRIORITY_REFRESH_WORKERS)")
	return cmd
}
