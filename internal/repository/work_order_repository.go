package repository

import (
	"context"
	"strings"
	"time"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/workorder"

	"github.com/google/uuid"
)

// WorkOrderInputs are the fields a priority score is computed from.
type WorkOrderInputs struct {
	SLADeadline          *time.Time
	SourceCategoryWeight float64
	ClientPriorityWeight float64
}

// PriorityUpdate is the cached priority written back after a recompute.
type PriorityUpdate struct {
	ID         uuid.UUID
	Score      float64
	Level      int
	ComputedAt time.Time
}

type WorkOrderRepository interface {
	CreateWorkOrder(ctx context.Context, wo workorder.WorkOrder) (workorder.WorkOrder, error)
	GetWorkOrder(ctx context.Context, id uuid.UUID) (workorder.WorkOrder, error)
	GetWorkOrdersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]workorder.WorkOrder, error)
	UpdateWorkOrderInputs(ctx context.Context, id uuid.UUID, in WorkOrderInputs, at time.Time) (workorder.WorkOrder, error)
	SavePriorities(ctx context.Context, updates []PriorityUpdate) error
	ListOpenWorkOrders(ctx context.Context) ([]workorder.WorkOrder, error)
}

type PostgresWorkOrderRepository struct {
	db database.DB
}

func NewPostgresWorkOrderRepository(db database.DB) *PostgresWorkOrderRepository {
	return &PostgresWorkOrderRepository{db: db}
}

const workOrderColumns = `id, code, sla_deadline, source_category_weight, client_priority_weight, status,
	priority_score, priority_level, priority_computed_at, created_at, updated_at`

func (r *PostgresWorkOrderRepository) CreateWorkOrder(ctx context.Context, wo workorder.WorkOrder) (workorder.WorkOrder, error) {
	row := r.db.QueryRow(ctx,
		`INSERT INTO work_orders (`+workOrderColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		 RETURNING `+workOrderColumns,
		wo.ID, strings.TrimSpace(wo.Code), wo.SLADeadline, wo.SourceCategoryWeight, wo.ClientPriorityWeight, string(wo.Status),
		wo.PriorityScore, wo.PriorityLevel, wo.PriorityComputedAt, wo.CreatedAt, wo.UpdatedAt,
	)
	out, err := scanWorkOrder(row)
	if err != nil {
		if dbpostgres.ErrorCode(err) == dbpostgres.CodeUniqueViolation {
			return workorder.WorkOrder{}, domain.Invalid("code", "already exists")
		}
		return workorder.WorkOrder{}, err
	}
	return out, nil
}

func (r *PostgresWorkOrderRepository) GetWorkOrder(ctx context.Context, id uuid.UUID) (workorder.WorkOrder, error) {
	out, err := scanWorkOrder(r.db.QueryRow(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return workorder.WorkOrder{}, domain.NotFound("work order", id)
		}
		return workorder.WorkOrder{}, err
	}
	return out, nil
}

func (r *PostgresWorkOrderRepository) GetWorkOrdersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]workorder.WorkOrder, error) {
	out := make(map[uuid.UUID]workorder.WorkOrder, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out[wo.ID] = wo
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresWorkOrderRepository) UpdateWorkOrderInputs(ctx context.Context, id uuid.UUID, in WorkOrderInputs, at time.Time) (workorder.WorkOrder, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE work_orders
		 SET sla_deadline = $2, source_category_weight = $3, client_priority_weight = $4, updated_at = $5
		 WHERE id = $1
		 RETURNING `+workOrderColumns,
		id, in.SLADeadline, in.SourceCategoryWeight, in.ClientPriorityWeight, at,
	)
	out, err := scanWorkOrder(row)
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return workorder.WorkOrder{}, domain.NotFound("work order", id)
		}
		return workorder.WorkOrder{}, err
	}
	return out, nil
}

// SavePriorities writes the cached columns without touching updated_at, so a
// refresh never looks like an edit.
func (r *PostgresWorkOrderRepository) SavePriorities(ctx context.Context, updates []PriorityUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		for _, u := range updates {
			_, err := tx.Exec(ctx,
				`UPDATE work_orders SET priority_score = $2, priority_level = $3, priority_computed_at = $4 WHERE id = $1`,
				u.ID, u.Score, u.Level, u.ComputedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresWorkOrderRepository) ListOpenWorkOrders(ctx context.Context) ([]workorder.WorkOrder, error) {
	rows, err := r.db.Query(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE status = 'open' ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]workorder.WorkOrder, 0)
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanWorkOrder(row database.Row) (workorder.WorkOrder, error) {
	var wo workorder.WorkOrder
	var status string
	var level *int16
	if err := row.Scan(
		&wo.ID, &wo.Code, &wo.SLADeadline, &wo.SourceCategoryWeight, &wo.ClientPriorityWeight, &status,
		&wo.PriorityScore, &level, &wo.PriorityComputedAt, &wo.CreatedAt, &wo.UpdatedAt,
	); err != nil {
		return workorder.WorkOrder{}, err
	}
	wo.Status = workorder.Status(status)
	if level != nil {
		l := int(*level)
		wo.PriorityLevel = &l
	}
	return wo, nil
}
