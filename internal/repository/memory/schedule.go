package memory

import (
	"context"
	"sort"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/schedule"

	"github.com/google/uuid"
)

func (s *Store) CreateReservation(_ context.Context, r schedule.Reservation) (schedule.Reservation, error) {
	unlock := s.equipmentLocks.Lock(r.EquipmentID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	eq, ok := s.equipment[r.EquipmentID]
	if !ok {
		return schedule.Reservation{}, domain.NotFound("equipment", r.EquipmentID)
	}
	if !eq.IsCritical() {
		return schedule.Reservation{}, domain.Invalid("equipment_id", "equipment is not critical; use capacity allocations")
	}
	if _, ok := s.tasks[r.TaskID]; !ok {
		return schedule.Reservation{}, domain.NotFound("task", r.TaskID)
	}
	if overlaps := schedule.Conflicts(s.reservationsOn(r.EquipmentID), r.Interval, uuid.Nil); len(overlaps) > 0 {
		return schedule.Reservation{}, schedule.ConflictError(r.EquipmentID, r.Interval, overlaps)
	}

	s.reservations[r.ID] = r
	return r, nil
}

func (s *Store) RescheduleReservation(_ context.Context, id uuid.UUID, iv schedule.Interval, at time.Time) (schedule.Reservation, error) {
	s.mu.RLock()
	cur, ok := s.reservations[id]
	s.mu.RUnlock()
	if !ok {
		return schedule.Reservation{}, domain.NotFound("reservation", id)
	}

	unlock := s.equipmentLocks.Lock(cur.EquipmentID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur = s.reservations[id]
	if !cur.Status.Active() {
		return schedule.Reservation{}, &domain.StateError{Resource: "reservation", ID: id, Current: string(cur.Status), Action: "reschedule"}
	}
	if overlaps := schedule.Conflicts(s.reservationsOn(cur.EquipmentID), iv, id); len(overlaps) > 0 {
		return schedule.Reservation{}, schedule.ConflictError(cur.EquipmentID, iv, overlaps)
	}

	cur.Interval = iv
	cur.UpdatedAt = at
	s.reservations[id] = cur
	return cur, nil
}

func (s *Store) TransitionReservation(_ context.Context, id uuid.UUID, to schedule.Status, at time.Time) (schedule.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.reservations[id]
	if !ok {
		return schedule.Reservation{}, domain.NotFound("reservation", id)
	}
	changed, err := schedule.Advance(cur, to)
	if err != nil {
		return schedule.Reservation{}, err
	}
	if changed {
		cur.Status = to
		cur.UpdatedAt = at
		s.reservations[id] = cur
	}
	return cur, nil
}

func (s *Store) GetReservation(_ context.Context, id uuid.UUID) (schedule.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return schedule.Reservation{}, domain.NotFound("reservation", id)
	}
	return r, nil
}

func (s *Store) ListReservations(_ context.Context, equipmentID uuid.UUID, window schedule.Interval) ([]schedule.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.Reservation, 0)
	for _, r := range s.reservationsOn(equipmentID) {
		if r.Interval.Overlaps(window) {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

func (s *Store) ListReservationsByTask(_ context.Context, taskID uuid.UUID) ([]schedule.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]schedule.Reservation, 0)
	for _, r := range s.reservations {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	sortReservations(out)
	return out, nil
}

// reservationsOn must be called with s.mu held.
func (s *Store) reservationsOn(equipmentID uuid.UUID) []schedule.Reservation {
	out := make([]schedule.Reservation, 0)
	for _, r := range s.reservations {
		if r.EquipmentID == equipmentID {
			out = append(out, r)
		}
	}
	return out
}

func sortReservations(rs []schedule.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Interval.Start.Equal(rs[j].Interval.Start) {
			return rs[i].ID.String() < rs[j].ID.String()
		}
		return rs[i].Interval.Start.Before(rs[j].Interval.Start)
	})
}

func (s *Store) CreateAllocation(_ context.Context, a capacity.Allocation, total int, enforce bool) (capacity.Allocation, error) {
	unlock := s.equipmentLocks.Lock(a.EquipmentID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.equipment[a.EquipmentID]; !ok {
		return capacity.Allocation{}, domain.NotFound("equipment", a.EquipmentID)
	}
	if _, ok := s.tasks[a.TaskID]; !ok {
		return capacity.Allocation{}, domain.NotFound("task", a.TaskID)
	}
	if enforce {
		usage := capacity.Compute(total, s.allocationsOn(a.EquipmentID, a.Interval), a.Interval)
		if a.Slots > usage.Available {
			return capacity.Allocation{}, &domain.CapacityError{EquipmentID: a.EquipmentID, Total: total, Available: usage.Available, Requested: a.Slots}
		}
	}

	s.allocations[a.ID] = a
	return a, nil
}

func (s *Store) GetAllocation(_ context.Context, id uuid.UUID) (capacity.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allocations[id]
	if !ok {
		return capacity.Allocation{}, domain.NotFound("allocation", id)
	}
	return a, nil
}

func (s *Store) ListAllocations(_ context.Context, equipmentID uuid.UUID, window schedule.Interval) ([]capacity.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allocationsOn(equipmentID, window), nil
}

func (s *Store) ListAllocationsByTask(_ context.Context, taskID uuid.UUID) ([]capacity.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]capacity.Allocation, 0)
	for _, a := range s.allocations {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	sortAllocations(out)
	return out, nil
}

func (s *Store) ReleaseAllocation(_ context.Context, id uuid.UUID) (capacity.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.allocations[id]
	if !ok {
		return capacity.Allocation{}, domain.NotFound("allocation", id)
	}
	a.Status = capacity.StatusReleased
	s.allocations[id] = a
	return a, nil
}

// allocationsOn returns active allocations overlapping window. s.mu must be held.
func (s *Store) allocationsOn(equipmentID uuid.UUID, window schedule.Interval) []capacity.Allocation {
	out := make([]capacity.Allocation, 0)
	for _, a := range s.allocations {
		if a.EquipmentID == equipmentID && a.Status == capacity.StatusActive && a.Interval.Overlaps(window) {
			out = append(out, a)
		}
	}
	sortAllocations(out)
	return out
}

func sortAllocations(as []capacity.Allocation) {
	sort.Slice(as, func(i, j int) bool {
		if as[i].Interval.Start.Equal(as[j].Interval.Start) {
			return as[i].ID.String() < as[j].ID.String()
		}
		return as[i].Interval.Start.Before(as[j].Interval.Start)
	})
}
