package seeder

import (
	"context"
	"fmt"

	"lab-scheduler/internal/database"
)

type SkillsSeeder struct {
	Fixtures Fixtures
}

func (SkillsSeeder) Name() string { return "skills" }

func (s SkillsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "skills", "id", "code", "name", "category", "requires_certification", "certification_validity_days", "created_at"); err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	for _, it := range s.Fixtures.Skills {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO skills (id, code, name, category, requires_certification, certification_validity_days, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (code) DO NOTHING`,
			it.ID,
			it.Code,
			it.Name,
			it.Category,
			it.RequiresCertification,
			it.CertificationValidityDays,
			it.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
