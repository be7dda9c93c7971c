package memory

import (
	"context"
	"sort"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *Store) RegisterConsumptions(_ context.Context, taskID uuid.UUID, items []material.Item, at time.Time) ([]material.Consumption, error) {
	demand, ids := material.Demand(items)

	unlock := s.materialLocks.LockAll(ids)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return nil, domain.NotFound("task", taskID)
	}
	stock := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for _, id := range ids {
		m, ok := s.materials[id]
		if !ok {
			return nil, domain.NotFound("material", id)
		}
		stock[id] = m.Quantity
	}
	if short := material.Shortages(demand, ids, stock); len(short) > 0 {
		return nil, &domain.StockError{Shortages: short}
	}

	for _, id := range ids {
		m := s.materials[id]
		m.Quantity = m.Quantity.Sub(demand[id])
		m.UpdatedAt = at
		s.materials[id] = m
	}
	out := make([]material.Consumption, 0, len(items))
	for _, it := range items {
		c := material.NewConsumption(taskID, it, s.materials[it.MaterialID].UnitPrice, at)
		s.consumptions[c.ID] = c
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) VoidConsumption(_ context.Context, id uuid.UUID, reason string, at time.Time) (material.Consumption, error) {
	s.mu.RLock()
	cur, ok := s.consumptions[id]
	s.mu.RUnlock()
	if !ok {
		return material.Consumption{}, domain.NotFound("consumption", id)
	}

	unlock := s.materialLocks.Lock(cur.MaterialID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur = s.consumptions[id]
	if cur.Status != material.StatusRegistered {
		return material.Consumption{}, &domain.StateError{Resource: "consumption", ID: id, Current: string(cur.Status), Action: "void"}
	}

	voidedAt := at
	cur.Status = material.StatusVoided
	cur.VoidReason = &reason
	cur.VoidedAt = &voidedAt
	s.consumptions[id] = cur

	if m, ok := s.materials[cur.MaterialID]; ok {
		m.Quantity = m.Quantity.Add(cur.QuantityConsumed)
		m.UpdatedAt = at
		s.materials[cur.MaterialID] = m
	}
	return cur, nil
}

func (s *Store) GetConsumption(_ context.Context, id uuid.UUID) (material.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consumptions[id]
	if !ok {
		return material.Consumption{}, domain.NotFound("consumption", id)
	}
	return c, nil
}

func (s *Store) ListConsumptionsByTask(_ context.Context, taskID uuid.UUID) ([]material.Consumption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]material.Consumption, 0)
	for _, c := range s.consumptions {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConsumedAt.Equal(out[j].ConsumedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].ConsumedAt.Before(out[j].ConsumedAt)
	})
	return out, nil
}
