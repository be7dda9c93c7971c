package seeder

import (
	"context"
	"fmt"
	"time"

	"lab-scheduler/internal/database"

	"github.com/sirupsen/logrus"
)

// Seeder writes one group of reference rows. Run must be safe to repeat.
type Seeder interface {
	Name() string
	Run(ctx context.Context, db database.DB) error
}

type Runner struct {
	Seeders []Seeder
	Logger  logrus.FieldLogger
}

func (r Runner) Run(ctx context.Context, db database.DB) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	logger := r.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Run(ctx, db); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		logger.WithFields(logrus.Fields{
			"component": "seeder",
			"seeder":    s.Name(),
			"elapsed":   time.Since(start).String(),
		}).Info("seeded")
	}
	return nil
}
