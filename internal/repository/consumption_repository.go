package repository

import (
	"context"
	"time"

	"lab-scheduler/internal/database"
	dbpostgres "lab-scheduler/internal/database/postgres"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ConsumptionRepository interface {
	// RegisterConsumptions decrements stock and records every item, or nothing.
	RegisterConsumptions(ctx context.Context, taskID uuid.UUID, items []material.Item, at time.Time) ([]material.Consumption, error)
	// VoidConsumption marks a registered row voided and returns its quantity to stock.
	VoidConsumption(ctx context.Context, id uuid.UUID, reason string, at time.Time) (material.Consumption, error)
	GetConsumption(ctx context.Context, id uuid.UUID) (material.Consumption, error)
	ListConsumptionsByTask(ctx context.Context, taskID uuid.UUID) ([]material.Consumption, error)
}

type PostgresConsumptionRepository struct {
	db database.DB
}

func NewPostgresConsumptionRepository(db database.DB) *PostgresConsumptionRepository {
	return &PostgresConsumptionRepository{db: db}
}

const consumptionColumns = `id, material_id, task_id, quantity_consumed, unit_price, total_cost, status, void_reason, consumed_at, voided_at`

func (r *PostgresConsumptionRepository) RegisterConsumptions(ctx context.Context, taskID uuid.UUID, items []material.Item, at time.Time) ([]material.Consumption, error) {
	demand, ids := material.Demand(items)
	out := make([]material.Consumption, 0, len(items))

	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		if _, err := getTask(ctx, tx, taskID, false); err != nil {
			return err
		}

		// Lock in sorted id order so concurrent registrations cannot deadlock.
		stock := make(map[uuid.UUID]decimal.Decimal, len(ids))
		prices := make(map[uuid.UUID]*float64, len(ids))
		for _, id := range ids {
			m, err := getMaterial(ctx, tx, id, true)
			if err != nil {
				return err
			}
			stock[id] = m.Quantity
			prices[id] = m.UnitPrice
		}
		if short := material.Shortages(demand, ids, stock); len(short) > 0 {
			return &domain.StockError{Shortages: short}
		}

		for _, id := range ids {
			if _, err := tx.Exec(ctx,
				`UPDATE materials SET quantity = quantity - $2, updated_at = $3 WHERE id = $1`,
				id, demand[id], at,
			); err != nil {
				return err
			}
		}

		for _, it := range items {
			c := material.NewConsumption(taskID, it, prices[it.MaterialID], at)
			if _, err := tx.Exec(ctx,
				`INSERT INTO consumptions (`+consumptionColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				c.ID, c.MaterialID, c.TaskID, c.QuantityConsumed, c.UnitPrice, c.TotalCost, string(c.Status), c.VoidReason, c.ConsumedAt, c.VoidedAt,
			); err != nil {
				return err
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		if dbpostgres.ErrorCode(err) == dbpostgres.CodeCheckViolation {
			// quantity >= 0 on materials is the last line against negative stock.
			return nil, &domain.StockError{}
		}
		return nil, err
	}
	return out, nil
}

func (r *PostgresConsumptionRepository) VoidConsumption(ctx context.Context, id uuid.UUID, reason string, at time.Time) (material.Consumption, error) {
	var out material.Consumption
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		row := tx.QueryRow(ctx,
			`UPDATE consumptions SET status = 'voided', void_reason = $2, voided_at = $3
			 WHERE id = $1 AND status = 'registered'
			 RETURNING `+consumptionColumns,
			id, reason, at,
		)
		c, err := scanConsumption(row)
		if err != nil {
			if !dbpostgres.IsNoRows(err) {
				return err
			}
			cur, gerr := getConsumption(ctx, tx, id)
			if gerr != nil {
				return gerr
			}
			return &domain.StateError{Resource: "consumption", ID: id, Current: string(cur.Status), Action: "void"}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE materials SET quantity = quantity + $2, updated_at = $3 WHERE id = $1`,
			c.MaterialID, c.QuantityConsumed, at,
		); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return material.Consumption{}, err
	}
	return out, nil
}

func (r *PostgresConsumptionRepository) GetConsumption(ctx context.Context, id uuid.UUID) (material.Consumption, error) {
	return getConsumption(ctx, r.db, id)
}

func (r *PostgresConsumptionRepository) ListConsumptionsByTask(ctx context.Context, taskID uuid.UUID) ([]material.Consumption, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+consumptionColumns+` FROM consumptions WHERE task_id = $1 ORDER BY consumed_at ASC, id ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]material.Consumption, 0)
	for rows.Next() {
		c, err := scanConsumption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func getConsumption(ctx context.Context, q database.Querier, id uuid.UUID) (material.Consumption, error) {
	c, err := scanConsumption(q.QueryRow(ctx, `SELECT `+consumptionColumns+` FROM consumptions WHERE id = $1`, id))
	if err != nil {
		if dbpostgres.IsNoRows(err) {
			return material.Consumption{}, domain.NotFound("consumption", id)
		}
		return material.Consumption{}, err
	}
	return c, nil
}

func scanConsumption(row database.Row) (material.Consumption, error) {
	var c material.Consumption
	var status string
	if err := row.Scan(&c.ID, &c.MaterialID, &c.TaskID, &c.QuantityConsumed, &c.UnitPrice, &c.TotalCost, &status, &c.VoidReason, &c.ConsumedAt, &c.VoidedAt); err != nil {
		return material.Consumption{}, err
	}
	c.Status = material.ConsumptionStatus(status)
	return c, nil
}
