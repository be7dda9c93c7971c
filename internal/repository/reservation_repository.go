package repository

import (
	"context"
	"time"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/schedule"

	"github.com/google/uuid"
)

type ReservationRepository interface {
	// CreateReservation checks for overlaps and inserts in one transaction
	// holding the equipment row lock. Overlaps yield a *domain.ConflictError.
	CreateReservation(ctx context.Context, r schedule.Reservation) (schedule.Reservation, error)
	RescheduleReservation(ctx context.Context, id uuid.UUID, iv schedule.Interval, at time.Time) (schedule.Reservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, to schedule.Status, at time.Time) (schedule.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (schedule.Reservation, error)
	ListReservations(ctx context.Context, equipmentID uuid.UUID, window schedule.Interval) ([]schedule.Reservation, error)
	ListReservationsByTask(ctx context.Context, taskID uuid.UUID) ([]schedule.Reservation, error)
}

type PostgresReservationRepository struct {
	db database.DB
}

func NewPostgresReservationRepository(db database.DB) *PostgresReservationRepository {
	return &PostgresReservationRepository{db: db}
}

const reservationColumns = `id, equipment_id, task_id, start_time, end_time, status, created_at, updated_at`

func (r *PostgresReservationRepository) CreateReservation(ctx context.Context, res schedule.Reservation) (schedule.Reservation, error) {
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		eq, err := getEquipment(ctx, tx, res.EquipmentID, true)
		if err != nil {
			return err
		}
		if !eq.IsCritical() {
			return domain.Invalid("equipment_id", "equipment is not critical; use capacity allocations")
		}
		if _, err := getTask(ctx, tx, res.TaskID, false); err != nil {
			return err
		}

		overlaps, err := activeOverlaps(ctx, tx, res.EquipmentID, res.Interval, uuid.Nil)
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return schedule.ConflictError(res.EquipmentID, res.Interval, overlaps)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO reservations (`+reservationColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			res.ID, res.EquipmentID, res.TaskID, res.Interval.Start, res.Interval.End, string(res.Status), res.CreatedAt, res.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return schedule.Reservation{}, r.translateOverlap(ctx, err, res.EquipmentID, res.Interval, uuid.Nil)
	}
	return res, nil
}

func (r *PostgresReservationRepository) RescheduleReservation(ctx context.Context, id uuid.UUID, iv schedule.Interval, at time.Time) (schedule.Reservation, error) {
	// The equipment id is needed to take the equipment lock before the reservation lock.
	cur, err := r.GetReservation(ctx, id)
	if err != nil {
		return schedule.Reservation{}, err
	}

	var out schedule.Reservation
	err = database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := getEquipment(ctx, tx, cur.EquipmentID, true); err != nil {
			return err
		}
		locked, err := getReservation(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if !locked.Status.Active() {
			return &domain.StateError{Resource: "reservation", ID: id, Current: string(locked.Status), Action: "reschedule"}
		}

		overlaps, err := activeOverlaps(ctx, tx, locked.EquipmentID, iv, id)
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return schedule.ConflictError(locked.EquipmentID, iv, overlaps)
		}

		_, err = tx.Exec(ctx,
			`UPDATE reservations SET start_time = $2, end_time = $3, updated_at = $4 WHERE id = $1`,
			id, iv.Start, iv.End, at,
		)
		if err != nil {
			return err
		}
		locked.Interval = iv
		locked.UpdatedAt = at
		out = locked
		return nil
	})
	if err != nil {
		return schedule.Reservation{}, r.translateOverlap(ctx, err, cur.EquipmentID, iv, id)
	}
	return out, nil
}

func (r *PostgresReservationRepository) TransitionReservation(ctx context.Context, id uuid.UUID, to schedule.Status, at time.Time) (schedule.Reservation, error) {
	var out schedule.Reservation
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		cur, err := getReservation(ctx, tx, id, true)
		if err != nil {
			return err
		}
		changed, err := schedule.Advance(cur, to)
		if err != nil {
			return err
		}
		if !changed {
			out = cur
			return nil
		}
		if _, err := tx.Exec(ctx, `UPDATE reservations SET status = $2, updated_at = $3 WHERE id = $1`, id, string(to), at); err != nil {
			return err
		}
		cur.Status = to
		cur.UpdatedAt = at
		out = cur
		return nil
	})
	if err != nil {
		return schedule.Reservation{}, err
	}
	return out, nil
}

func (r *PostgresReservationRepository) GetReservation(ctx context.Context, id uuid.UUID) (schedule.Reservation, error) {
	return getReservation(ctx, r.db, id, false)
}

// ListReservations returns reservations of any status that overlap window.
func (r *PostgresReservationRepository) ListReservations(ctx context.Context, equipmentID uuid.UUID, window schedule.Interval) ([]schedule.Reservation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE equipment_id = $1 AND start_time < $3 AND end_time > $2
		 ORDER BY start_time ASC, id ASC`,
		equipmentID, window.Start, window.End,
	)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PostgresReservationRepository) ListReservationsByTask(ctx context.Context, taskID uuid.UUID) ([]schedule.Reservation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE task_id = $1 ORDER BY start_time ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

// translateOverlap turns an exclusion-constraint violation into the same
// conflict error the pre-insert check reports. The constraint only fires if a
// writer bypassed the equipment lock.
func (r *PostgresReservationRepository) translateOverlap(ctx context.Context, err error, equipmentID uuid.UUID, iv schedule.Interval, exclude uuid.UUID) error {
	if dbpostgres.ErrorCode(err) != dbpostgres.CodeExclusionViolation {
		return err
	}
	overlaps, qerr := activeOverlaps(ctx, r.db, equipmentID, iv, exclude)
	if qerr != nil {
		overlaps = nil
	}
	return schedule.ConflictError(equipmentID, iv, overlaps)
}

func activeOverlaps(ctx context.Context, q database.Querier, equipmentID uuid.UUID, iv schedule.Interval, exclude uuid.UUID) ([]schedule.Reservation, error) {
	rows, err := q.Query(ctx,
		`SELECT `+reservationColumns+`
		 FROM reservations
		 WHERE equipment_id = $1
		   AND status IN ('scheduled', 'in_progress')
		   AND start_time < $3 AND end_time > $2
		   AND id <> $4
		 ORDER BY start_time ASC, id ASC`,
		equipmentID, iv.Start, iv.End, exclude,
	)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func getReservation(ctx context.Context, q database.Querier, id uuid.UUID, forUpdate bool) (schedule.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	res, err := scanReservation(q.QueryRow(ctx, query, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return schedule.Reservation{}, domain.NotFound("reservation", id)
		}
		return schedule.Reservation{}, err
	}
	return res, nil
}

func collectReservations(rows database.Rows) ([]schedule.Reservation, error) {
	defer rows.Close()
	out := make([]schedule.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReservation(row database.Row) (schedule.Reservation, error) {
	var res schedule.Reservation
	var status string
	if err := row.Scan(&res.ID, &res.EquipmentID, &res.TaskID, &res.Interval.Start, &res.Interval.End, &status, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return schedule.Reservation{}, err
	}
	res.Status = schedule.Status(status)
	res.Interval.Start = res.Interval.Start.UTC()
	res.Interval.End = res.Interval.End.UTC()
	return res, nil
}
