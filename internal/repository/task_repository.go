package repository

import (
	"context"
	"fmt"
	"time"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/task"

	"github.com/google/uuid"
)

// TaskTransition is a compare-and-set on a task's status. When SetAssignee is
// true the assignee column is overwritten with Assignee (nil clears it).
type TaskTransition struct {
	ID          uuid.UUID
	From        task.Status
	To          task.Status
	SetAssignee bool
	Assignee    *uuid.UUID
	At          time.Time
}

// TaskCursor resumes a (created_at, id) ordered listing after the given row.
// The zero value starts from the first row.
type TaskCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// CursorAfter returns the cursor that continues after t.
func CursorAfter(t task.Task) TaskCursor {
	return TaskCursor{CreatedAt: t.CreatedAt, ID: t.ID}
}

type TaskRepository interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTask(ctx context.Context, id uuid.UUID) (task.Task, error)
	TransitionTask(ctx context.Context, tr TaskTransition) (task.Task, error)
	ListTasksByStatus(ctx context.Context, statuses []task.Status, limit int) ([]task.Task, error)
	ListTasksPage(ctx context.Context, statuses []task.Status, after TaskCursor, limit int) ([]task.Task, error)
}

type PostgresTaskRepository struct {
	db database.DB
}

func NewPostgresTaskRepository(db database.DB) *PostgresTaskRepository {
	return &PostgresTaskRepository{db: db}
}

const taskColumns = `id, work_order_id, title, required_equipment_id, required_capacity, status, assigned_technician_id, created_at, updated_at`

func (r *PostgresTaskRepository) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			t.ID, t.WorkOrderID, t.Title, t.RequiredEquipmentID, t.RequiredCapacity,
			string(t.Status), t.AssignedTechnicianID, t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return translateTaskWriteError(err, t)
		}

		for i, req := range t.RequiredSkills {
			_, err := tx.Exec(ctx,
				`INSERT INTO task_required_skills (task_id, position, skill_id, min_proficiency, certification_required)
				 VALUES ($1,$2,$3,$4,$5)`,
				t.ID, i, req.SkillID, req.MinProficiency.String(), req.CertificationRequired,
			)
			if err != nil {
				if dbpostgres.ErrorCode(err) == dbpostgres.CodeForeignKeyViolation {
					return domain.NotFound("skill", req.SkillID)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}
	return r.GetTask(ctx, t.ID)
}

func translateTaskWriteError(err error, t task.Task) error {
	if dbpostgres.ErrorCode(err) != dbpostgres.CodeForeignKeyViolation {
		return err
	}
	// The FK error does not say which reference failed; report the most specific one.
	if t.RequiredEquipmentID != nil {
		return fmt.Errorf("%w: work order %s or equipment %s", domain.ErrNotFound, t.WorkOrderID, *t.RequiredEquipmentID)
	}
	return domain.NotFound("work order", t.WorkOrderID)
}

func (r *PostgresTaskRepository) GetTask(ctx context.Context, id uuid.UUID) (task.Task, error) {
	return getTask(ctx, r.db, id, false)
}

func getTask(ctx context.Context, q database.Querier, id uuid.UUID, forUpdate bool) (task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTask(q.QueryRow(ctx, query, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return task.Task{}, domain.NotFound("task", id)
		}
		return task.Task{}, err
	}

	reqs, err := loadRequirements(ctx, q, []uuid.UUID{id})
	if err != nil {
		return task.Task{}, err
	}
	t.RequiredSkills = reqs[id]
	return t, nil
}

func (r *PostgresTaskRepository) TransitionTask(ctx context.Context, tr TaskTransition) (task.Task, error) {
	var out task.Task
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		cur, err := getTask(ctx, tx, tr.ID, true)
		if err != nil {
			return err
		}
		if cur.Status != tr.From {
			return &domain.StateError{Resource: "task", ID: tr.ID, Current: string(cur.Status), Action: "move to " + string(tr.To)}
		}

		assignee := cur.AssignedTechnicianID
		if tr.SetAssignee {
			assignee = tr.Assignee
		}
		_, err = tx.Exec(ctx,
			`UPDATE tasks SET status = $1, assigned_technician_id = $2, updated_at = $3 WHERE id = $4`,
			string(tr.To), assignee, tr.At, tr.ID,
		)
		if err != nil {
			if dbpostgres.ErrorCode(err) == dbpostgres.CodeForeignKeyViolation && assignee != nil {
				return domain.NotFound("technician", *assignee)
			}
			return err
		}

		cur.Status = tr.To
		cur.AssignedTechnicianID = assignee
		cur.UpdatedAt = tr.At
		out = cur
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}
	return out, nil
}

func (r *PostgresTaskRepository) ListTasksByStatus(ctx context.Context, statuses []task.Status, limit int) ([]task.Task, error) {
	return r.ListTasksPage(ctx, statuses, TaskCursor{}, limit)
}

func (r *PostgresTaskRepository) ListTasksPage(ctx context.Context, statuses []task.Status, after TaskCursor, limit int) ([]task.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE status = ANY($1::text[]) AND (created_at, id) > ($2::timestamptz, $3::uuid)
		 ORDER BY created_at ASC, id ASC LIMIT $4`,
		names, after.CreatedAt, after.ID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]task.Task, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reqs, err := loadRequirements(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].RequiredSkills = reqs[out[i].ID]
	}
	return out, nil
}

func loadRequirements(ctx context.Context, q database.Querier, taskIDs []uuid.UUID) (map[uuid.UUID][]skill.Requirement, error) {
	out := make(map[uuid.UUID][]skill.Requirement, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}

	rows, err := q.Query(ctx,
		`SELECT task_id, skill_id, min_proficiency, certification_required
		 FROM task_required_skills
		 WHERE task_id = ANY($1::uuid[])
		 ORDER BY task_id, position`,
		taskIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var taskID uuid.UUID
		var req skill.Requirement
		var level string
		if err := rows.Scan(&taskID, &req.SkillID, &level, &req.CertificationRequired); err != nil {
			return nil, err
		}
		p, err := skill.ParseProficiency(level)
		if err != nil {
			return nil, fmt.Errorf("task %s requirement: %w", taskID, err)
		}
		req.MinProficiency = p
		out[taskID] = append(out[taskID], req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanTask(row database.Row) (task.Task, error) {
	var t task.Task
	var status string
	if err := row.Scan(&t.ID, &t.WorkOrderID, &t.Title, &t.RequiredEquipmentID, &t.RequiredCapacity, &status, &t.AssignedTechnicianID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return task.Task{}, err
	}
	t.Status = task.Status(status)
	return t, nil
}
