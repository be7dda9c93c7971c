package seeder

import (
	"context"
	"fmt"

	"lab-scheduler/internal/database"
	"lab-scheduler/internal/domain/equipment"
)

type EquipmentSeeder struct {
	Fixtures Fixtures
}

func (EquipmentSeeder) Name() string { return "equipment" }

func (s EquipmentSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "equipment", "id", "name", "category", "is_critical", "capacity", "created_at"); err != nil {
		return err
	}

	return database.WithTx(ctx, db, func(tx database.Tx) error {
		for _, it := range s.Fixtures.Equipment {
			critical, capacity := equipment.StrategyColumns(it.Strategy)
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO equipment (id, name, category, is_critical, capacity, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
				it.ID, it.Name, it.Category, critical, capacity, it.CreatedAt,
			); err != nil {
				return fmt.Errorf("equipment %s: %w", it.Name, err)
			}
		}
		return nil
	})
}

// MaterialsSeeder never overwrites stock of an existing material.
type MaterialsSeeder struct {
	Fixtures Fixtures
}

func (MaterialsSeeder) Name() string { return "materials" }

func (s MaterialsSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "materials", "id", "code", "name", "unit", "quantity", "unit_price", "updated_at"); err != nil {
		return err
	}

	return database.WithTx(ctx, db, func(tx database.Tx) error {
		for _, it := range s.Fixtures.Materials {
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO materials (id, code, name, unit, quantity, unit_price, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (code) DO NOTHING`,
				it.ID, it.Code, it.Name, it.Unit, it.Quantity, it.UnitPrice, it.UpdatedAt,
			); err != nil {
				return fmt.Errorf("material %s: %w", it.Code, err)
			}
		}
		return nil
	})
}

type WorkOrdersSeeder struct {
	Fixtures Fixtures
}

func (WorkOrdersSeeder) Name() string { return "work_orders" }

func (s WorkOrdersSeeder) Run(ctx context.Context, db database.DB) error {
	if err := EnsureTableColumns(ctx, db, "work_orders", "id", "code", "sla_deadline", "source_category_weight", "client_priority_weight", "status", "created_at", "updated_at"); err != nil {
		return err
	}

	return database.WithTx(ctx, db, func(tx database.Tx) error {
		for _, it := range s.Fixtures.WorkOrders {
			if _, err := tx.Exec(
				ctx,
				`INSERT INTO work_orders (id, code, sla_deadline, source_category_weight, client_priority_weight, status, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (code) DO NOTHING`,
				it.ID, it.Code, it.SLADeadline, it.SourceCategoryWeight, it.ClientPriorityWeight, string(it.Status), it.CreatedAt, it.UpdatedAt,
			); err != nil {
				return fmt.Errorf("work order %s: %w", it.Code, err)
			}
		}
		return nil
	})
}
