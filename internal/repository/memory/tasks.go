package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/domain/workorder"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
)

func (s *Store) CreateTask(_ context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workOrders[t.WorkOrderID]; !ok {
		return task.Task{}, domain.NotFound("work order", t.WorkOrderID)
	}
	if t.RequiredEquipmentID != nil {
		if _, ok := s.equipment[*t.RequiredEquipmentID]; !ok {
			return task.Task{}, domain.NotFound("equipment", *t.RequiredEquipmentID)
		}
	}
	for _, req := range t.RequiredSkills {
		if _, ok := s.skills[req.SkillID]; !ok {
			return task.Task{}, domain.NotFound("skill", req.SkillID)
		}
	}
	if t.AssignedTechnicianID != nil {
		if _, ok := s.technicians[*t.AssignedTechnicianID]; !ok {
			return task.Task{}, domain.NotFound("technician", *t.AssignedTechnicianID)
		}
	}
	if _, ok := s.tasks[t.ID]; ok {
		return task.Task{}, domain.Invalid("id", "already exists")
	}

	s.tasks[t.ID] = copyTask(t)
	return copyTask(t), nil
}

func (s *Store) GetTask(_ context.Context, id uuid.UUID) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, domain.NotFound("task", id)
	}
	return copyTask(t), nil
}

func (s *Store) TransitionTask(_ context.Context, tr repository.TaskTransition) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[tr.ID]
	if !ok {
		return task.Task{}, domain.NotFound("task", tr.ID)
	}
	if cur.Status != tr.From {
		return task.Task{}, &domain.StateError{Resource: "task", ID: tr.ID, Current: string(cur.Status), Action: "move to " + string(tr.To)}
	}
	if tr.SetAssignee {
		if tr.Assignee != nil {
			if _, ok := s.technicians[*tr.Assignee]; !ok {
				return task.Task{}, domain.NotFound("technician", *tr.Assignee)
			}
			id := *tr.Assignee
			cur.AssignedTechnicianID = &id
		} else {
			cur.AssignedTechnicianID = nil
		}
	}
	cur.Status = tr.To
	cur.UpdatedAt = tr.At
	s.tasks[tr.ID] = cur
	return copyTask(cur), nil
}

func (s *Store) ListTasksByStatus(ctx context.Context, statuses []task.Status, limit int) ([]task.Task, error) {
	return s.ListTasksPage(ctx, statuses, repository.TaskCursor{}, limit)
}

func (s *Store) ListTasksPage(_ context.Context, statuses []task.Status, after repository.TaskCursor, limit int) ([]task.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	want := make(map[task.Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}

	s.mu.RLock()
	out := make([]task.Task, 0)
	for _, t := range s.tasks {
		if _, ok := want[t.Status]; ok && cursorBefore(after, t) {
			out = append(out, copyTask(t))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cursorBefore(c repository.TaskCursor, t task.Task) bool {
	if !t.CreatedAt.Equal(c.CreatedAt) {
		return t.CreatedAt.After(c.CreatedAt)
	}
	return t.ID.String() > c.ID.String()
}

func (s *Store) CreateWorkOrder(_ context.Context, wo workorder.WorkOrder) (workorder.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wo.Code = strings.TrimSpace(wo.Code)
	for _, existing := range s.workOrders {
		if existing.Code == wo.Code {
			return workorder.WorkOrder{}, domain.Invalid("code", "already exists")
		}
	}
	s.workOrders[wo.ID] = wo
	return wo, nil
}

func (s *Store) GetWorkOrder(_ context.Context, id uuid.UUID) (workorder.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wo, ok := s.workOrders[id]
	if !ok {
		return workorder.WorkOrder{}, domain.NotFound("work order", id)
	}
	return wo, nil
}

func (s *Store) GetWorkOrdersByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]workorder.WorkOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]workorder.WorkOrder, len(ids))
	for _, id := range ids {
		if wo, ok := s.workOrders[id]; ok {
			out[id] = wo
		}
	}
	return out, nil
}

func (s *Store) UpdateWorkOrderInputs(_ context.Context, id uuid.UUID, in repository.WorkOrderInputs, at time.Time) (workorder.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wo, ok := s.workOrders[id]
	if !ok {
		return workorder.WorkOrder{}, domain.NotFound("work order", id)
	}
	wo.SLADeadline = in.SLADeadline
	wo.SourceCategoryWeight = in.SourceCategoryWeight
	wo.ClientPriorityWeight = in.ClientPriorityWeight
	wo.UpdatedAt = at
	s.workOrders[id] = wo
	return wo, nil
}

func (s *Store) SavePriorities(_ context.Context, updates []repository.PriorityUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range updates {
		wo, ok := s.workOrders[u.ID]
		if !ok {
			continue
		}
		score, level, at := u.Score, u.Level, u.ComputedAt
		wo.PriorityScore = &score
		wo.PriorityLevel = &level
		wo.PriorityComputedAt = &at
		s.workOrders[u.ID] = wo
	}
	return nil
}

func (s *Store) ListOpenWorkOrders(_ context.Context) ([]workorder.WorkOrder, error) {
	s.mu.RLock()
	out := make([]workorder.WorkOrder, 0)
	for _, wo := range s.workOrders {
		if wo.Status == workorder.StatusOpen {
			out = append(out, wo)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
