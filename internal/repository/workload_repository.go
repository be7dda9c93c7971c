package repository

import (
	"context"

	"lab-scheduler/internal/database"

	"github.com/google/uuid"
)

// WorkloadRepository counts tasks a technician currently holds (assigned or in progress).
type WorkloadRepository interface {
	CountOpenTasks(ctx context.Context, technicianIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type PostgresWorkloadRepository struct {
	db database.DB
}

func NewPostgresWorkloadRepository(db database.DB) *PostgresWorkloadRepository {
	return &PostgresWorkloadRepository{db: db}
}

func (r *PostgresWorkloadRepository) CountOpenTasks(ctx context.Context, technicianIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(technicianIDs))
	if len(technicianIDs) == 0 {
		return out, nil
	}
	for _, id := range technicianIDs {
		out[id] = 0
	}

	rows, err := r.db.Query(ctx,
		`SELECT assigned_technician_id, COUNT(1)
		 FROM tasks
		 WHERE assigned_technician_id = ANY($1::uuid[])
		   AND status IN ('assigned', 'in_progress')
		 GROUP BY assigned_technician_id`,
		technicianIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
