package repository

import (
	"context"
	"fmt"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/equipment"

	"github.com/google/uuid"
)

type EquipmentRepository interface {
	GetEquipment(ctx context.Context, id uuid.UUID) (equipment.Equipment, error)
	ListEquipment(ctx context.Context) ([]equipment.Equipment, error)
}

type PostgresEquipmentRepository struct {
	db database.DB
}

func NewPostgresEquipmentRepository(db database.DB) *PostgresEquipmentRepository {
	return &PostgresEquipmentRepository{db: db}
}

const equipmentColumns = `id, name, category, is_critical, capacity, created_at`

func (r *PostgresEquipmentRepository) GetEquipment(ctx context.Context, id uuid.UUID) (equipment.Equipment, error) {
	return getEquipment(ctx, r.db, id, false)
}

func (r *PostgresEquipmentRepository) ListEquipment(ctx context.Context) ([]equipment.Equipment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]equipment.Equipment, 0)
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// getEquipment with forUpdate takes the row lock that serializes every
// schedule and capacity write on one equipment item.
func getEquipment(ctx context.Context, q database.Querier, id uuid.UUID, forUpdate bool) (equipment.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanEquipment(q.QueryRow(ctx, query, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return equipment.Equipment{}, domain.NotFound("equipment", id)
		}
		return equipment.Equipment{}, err
	}
	return e, nil
}

func scanEquipment(row database.Row) (equipment.Equipment, error) {
	var e equipment.Equipment
	var critical bool
	var capacity *int
	if err := row.Scan(&e.ID, &e.Name, &e.Category, &critical, &capacity, &e.CreatedAt); err != nil {
		return equipment.Equipment{}, err
	}
	s, err := equipment.StrategyFromColumns(critical, capacity)
	if err != nil {
		return equipment.Equipment{}, fmt.Errorf("equipment %s: %w", e.ID, err)
	}
	e.Strategy = s
	return e, nil
}
