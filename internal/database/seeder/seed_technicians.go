package seeder

import (
	"context"
	"fmt"

	"lab-scheduler/internal/database"
)

// TechniciansSeeder writes technicians and their held skills. It must run
// after SkillsSeeder.
type TechniciansSeeder struct {
	Fixtures Fixtures
}

func (TechniciansSeeder) Name() string { return "technicians" }

func (s TechniciansSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "technicians", "id", "name", "status", "site", "lab", "created_at"); err != nil {
		return err
	}
	if err := EnsureTableColumns(ctx, db, "technician_skills", "technician_id", "skill_id", "proficiency_level", "is_certified", "certification_expiry"); err != nil {
		return err
	}

	return database.WithTx(ctx, db, func(tx database.Tx) error {
		for _, it := range s.Fixtures.Technicians {
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO technicians (id, name, status, site, lab, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
				it.ID, it.Name, string(it.Status), it.Site, it.Lab, it.CreatedAt,
			); err != nil {
				return fmt.Errorf("technician %s: %w", it.Name, err)
			}
		}
		for _, it := range s.Fixtures.TechnicianSkills {
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO technician_skills (technician_id, skill_id, proficiency_level, is_certified, certification_expiry)
				 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (technician_id, skill_id) DO NOTHING`,
				it.TechnicianID, it.SkillID, it.Proficiency.String(), it.IsCertified, it.CertificationExpiry,
			); err != nil {
				return fmt.Errorf("technician skill %s: %w", it.SkillCode, err)
			}
		}
		return nil
	})
}
