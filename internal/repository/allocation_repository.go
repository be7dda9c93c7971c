package repository

import (
	"context"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/schedule"

	"github.com/google/uuid"
)

type AllocationRepository interface {
	// CreateAllocation inserts a under the equipment lock. When enforce is set
	// and the window's peak usage plus a.Slots exceeds total, it returns a
	// *domain.CapacityError and writes nothing.
	CreateAllocation(ctx context.Context, a capacity.Allocation, total int, enforce bool) (capacity.Allocation, error)
	GetAllocation(ctx context.Context, id uuid.UUID) (capacity.Allocation, error)
	ListAllocations(ctx context.Context, equipmentID uuid.UUID, window schedule.Interval) ([]capacity.Allocation, error)
	ListAllocationsByTask(ctx context.Context, taskID uuid.UUID) ([]capacity.Allocation, error)
	ReleaseAllocation(ctx context.Context, id uuid.UUID) (capacity.Allocation, error)
}

type PostgresAllocationRepository struct {
	db database.DB
}

func NewPostgresAllocationRepository(db database.DB) *PostgresAllocationRepository {
	return &PostgresAllocationRepository{db: db}
}

const allocationColumns = `id, equipment_id, task_id, slots, start_time, end_time, status, created_at`

func (r *PostgresAllocationRepository) CreateAllocation(ctx context.Context, a capacity.Allocation, total int, enforce bool) (capacity.Allocation, error) {
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := getEquipment(ctx, tx, a.EquipmentID, true); err != nil {
			return err
		}
		if _, err := getTask(ctx, tx, a.TaskID, false); err != nil {
			return err
		}

		if enforce {
			existing, err := listAllocations(ctx, tx, a.EquipmentID, a.Interval)
			if err != nil {
				return err
			}
			usage := capacity.Compute(total, existing, a.Interval)
			if a.Slots > usage.Available {
				return &domain.CapacityError{EquipmentID: a.EquipmentID, Total: total, Available: usage.Available, Requested: a.Slots}
			}
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO capacity_allocations (`+allocationColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			a.ID, a.EquipmentID, a.TaskID, a.Slots, a.Interval.Start, a.Interval.End, string(a.Status), a.CreatedAt,
		)
		return err
	})
	if err != nil {
		return capacity.Allocation{}, err
	}
	return a, nil
}

func (r *PostgresAllocationRepository) GetAllocation(ctx context.Context, id uuid.UUID) (capacity.Allocation, error) {
	a, err := scanAllocation(r.db.QueryRow(ctx, `SELECT `+allocationColumns+` FROM capacity_allocations WHERE id = $1`, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return capacity.Allocation{}, domain.NotFound("allocation", id)
		}
		return capacity.Allocation{}, err
	}
	return a, nil
}

func (r *PostgresAllocationRepository) ListAllocations(ctx context.Context, equipmentID uuid.UUID, window schedule.Interval) ([]capacity.Allocation, error) {
	return listAllocations(ctx, r.db, equipmentID, window)
}

func listAllocations(ctx context.Context, q database.Querier, equipmentID uuid.UUID, window schedule.Interval) ([]capacity.Allocation, error) {
	rows, err := q.Query(ctx,
		`SELECT `+allocationColumns+`
		 FROM capacity_allocations
		 WHERE equipment_id = $1 AND status = 'active' AND start_time < $3 AND end_time > $2
		 ORDER BY start_time ASC, id ASC`,
		equipmentID, window.Start, window.End,
	)
	if err != nil {
		return nil, err
	}
	return collectAllocations(rows)
}

func (r *PostgresAllocationRepository) ListAllocationsByTask(ctx context.Context, taskID uuid.UUID) ([]capacity.Allocation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+allocationColumns+` FROM capacity_allocations WHERE task_id = $1 ORDER BY start_time ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	return collectAllocations(rows)
}

// ReleaseAllocation is idempotent: releasing a released allocation returns it unchanged.
func (r *PostgresAllocationRepository) ReleaseAllocation(ctx context.Context, id uuid.UUID) (capacity.Allocation, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE capacity_allocations SET status = 'released' WHERE id = $1 RETURNING `+allocationColumns,
		id,
	)
	a, err := scanAllocation(row)
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return capacity.Allocation{}, domain.NotFound("allocation", id)
		}
		return capacity.Allocation{}, err
	}
	return a, nil
}

func collectAllocations(rows database.Rows) ([]capacity.Allocation, error) {
	defer rows.Close()
	out := make([]capacity.Allocation, 0)
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAllocation(row database.Row) (capacity.Allocation, error) {
	var a capacity.Allocation
	var status string
	if err := row.Scan(&a.ID, &a.EquipmentID, &a.TaskID, &a.Slots, &a.Interval.Start, &a.Interval.End, &status, &a.CreatedAt); err != nil {
		return capacity.Allocation{}, err
	}
	a.Status = capacity.Status(status)
	a.Interval.Start = a.Interval.Start.UTC()
	a.Interval.End = a.Interval.End.UTC()
	return a, nil
}
