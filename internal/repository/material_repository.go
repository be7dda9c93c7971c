package repository

import (
	"context"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"

	"github.com/google/uuid"
)

type MaterialRepository interface {
	GetMaterial(ctx context.Context, id uuid.UUID) (material.Material, error)
	ListMaterials(ctx context.Context) ([]material.Material, error)
}

type PostgresMaterialRepository struct {
	db database.DB
}

func NewPostgresMaterialRepository(db database.DB) *PostgresMaterialRepository {
	return &PostgresMaterialRepository{db: db}
}

const materialColumns = `id, code, name, unit, quantity, unit_price, updated_at`

func (r *PostgresMaterialRepository) GetMaterial(ctx context.Context, id uuid.UUID) (material.Material, error) {
	return getMaterial(ctx, r.db, id, false)
}

func (r *PostgresMaterialRepository) ListMaterials(ctx context.Context) ([]material.Material, error) {
	rows, err := r.db.Query(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]material.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func getMaterial(ctx context.Context, q database.Querier, id uuid.UUID, forUpdate bool) (material.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMaterial(q.QueryRow(ctx, query, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return material.Material{}, domain.NotFound("material", id)
		}
		return material.Material{}, err
	}
	return m, nil
}

func scanMaterial(row database.Row) (material.Material, error) {
	var m material.Material
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Unit, &m.Quantity, &m.UnitPrice, &m.UpdatedAt); err != nil {
		return material.Material{}, err
	}
	return m, nil
}
