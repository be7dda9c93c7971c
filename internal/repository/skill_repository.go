package repository

import (
	"context"

	"lab-scheduler/internal/database"
	"lab-scheduler/internal/domain/skill"

	"github.com/google/uuid"
)

type SkillRepository interface {
	ListSkills(ctx context.Context) ([]skill.Skill, error)
	GetSkillsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]skill.Skill, error)
}

type PostgresSkillRepository struct {
	db database.DB
}

func NewPostgresSkillRepository(db database.DB) *PostgresSkillRepository {
	return &PostgresSkillRepository{db: db}
}

const skillColumns = `id, code, name, category, requires_certification, certification_validity_days, created_at`

func (r *PostgresSkillRepository) ListSkills(ctx context.Context) ([]skill.Skill, error) {
	rows, err := r.db.Query(ctx, `SELECT `+skillColumns+` FROM skills ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]skill.Skill, 0)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresSkillRepository) GetSkillsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]skill.Skill, error) {
	out := make(map[uuid.UUID]skill.Skill, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+skillColumns+` FROM skills WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanSkill(row database.Row) (skill.Skill, error) {
	var s skill.Skill
	if err := row.Scan(&s.ID, &s.Code, &s.Name, &s.Category, &s.RequiresCertification, &s.CertificationValidityDays, &s.CreatedAt); err != nil {
		return skill.Skill{}, err
	}
	return s, nil
}
