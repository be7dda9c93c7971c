package repository

import (
	"context"
	"fmt"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/technician"

	"github.com/google/uuid"
)

// TechnicianRepository is the read side of the skill ledger. Skill records are
// written by the assessment workflow outside this service.
type TechnicianRepository interface {
	ListTechnicians(ctx context.Context) ([]technician.Technician, error)
	GetTechnician(ctx context.Context, id uuid.UUID) (technician.Technician, error)
	ListTechnicianSkills(ctx context.Context, technicianIDs []uuid.UUID) (map[uuid.UUID][]skill.TechnicianSkill, error)
}

type PostgresTechnicianRepository struct {
	db database.DB
}

func NewPostgresTechnicianRepository(db database.DB) *PostgresTechnicianRepository {
	return &PostgresTechnicianRepository{db: db}
}

func (r *PostgresTechnicianRepository) ListTechnicians(ctx context.Context) ([]technician.Technician, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, status, site, lab, created_at FROM technicians ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]technician.Technician, 0)
	for rows.Next() {
		t, err := scanTechnician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresTechnicianRepository) GetTechnician(ctx context.Context, id uuid.UUID) (technician.Technician, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, status, site, lab, created_at FROM technicians WHERE id = $1`, id)
	t, err := scanTechnician(row)
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return technician.Technician{}, domain.NotFound("technician", id)
		}
		return technician.Technician{}, err
	}
	return t, nil
}

func (r *PostgresTechnicianRepository) ListTechnicianSkills(ctx context.Context, technicianIDs []uuid.UUID) (map[uuid.UUID][]skill.TechnicianSkill, error) {
	out := make(map[uuid.UUID][]skill.TechnicianSkill, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT ts.technician_id, ts.skill_id, s.code, ts.proficiency_level, ts.is_certified, ts.certification_expiry
		 FROM technician_skills ts
		 JOIN skills s ON s.id = ts.skill_id
		 WHERE ts.technician_id = ANY($1::uuid[])
		 ORDER BY ts.technician_id, s.code`,
		technicianIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ts skill.TechnicianSkill
		var level string
		if err := rows.Scan(&ts.TechnicianID, &ts.SkillID, &ts.SkillCode, &level, &ts.IsCertified, &ts.CertificationExpiry); err != nil {
			return nil, err
		}
		p, err := skill.ParseProficiency(level)
		if err != nil {
			return nil, fmt.Errorf("technician %s skill %s: %w", ts.TechnicianID, ts.SkillID, err)
		}
		ts.Proficiency = p
		out[ts.TechnicianID] = append(out[ts.TechnicianID], ts)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTechnician(row database.Row) (technician.Technician, error) {
	var t technician.Technician
	var status string
	if err := row.Scan(&t.ID, &t.Name, &status, &t.Site, &t.Lab, &t.CreatedAt); err != nil {
		return technician.Technician{}, err
	}
	t.Status = technician.Status(status)
	return t, nil
}
