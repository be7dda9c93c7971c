package memory

import (
	"context"
	"sort"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/equipment"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/technician"

	"github.com/google/uuid"
)

func (s *Store) ListSkills(_ context.Context) ([]skill.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]skill.Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) GetSkillsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]skill.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]skill.Skill, len(ids))
	for _, id := range ids {
		if sk, ok := s.skills[id]; ok {
			out[id] = sk
		}
	}
	return out, nil
}

func (s *Store) ListTechnicians(_ context.Context) ([]technician.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]technician.Technician, 0, len(s.technicians))
	for _, t := range s.technicians {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *Store) GetTechnician(_ context.Context, id uuid.UUID) (technician.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.technicians[id]
	if !ok {
		return technician.Technician{}, domain.NotFound("technician", id)
	}
	return t, nil
}

func (s *Store) ListTechnicianSkills(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]skill.TechnicianSkill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID][]skill.TechnicianSkill, len(ids))
	for _, id := range ids {
		if list, ok := s.technicianSkills[id]; ok {
			out[id] = append([]skill.TechnicianSkill(nil), list...)
		}
	}
	return out, nil
}

func (s *Store) CountOpenTasks(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		out[id] = 0
	}
	for _, t := range s.tasks {
		if t.AssignedTechnicianID == nil || !t.Status.Open() {
			continue
		}
		if _, ok := out[*t.AssignedTechnicianID]; ok {
			out[*t.AssignedTechnicianID]++
		}
	}
	return out, nil
}

func (s *Store) GetEquipment(_ context.Context, id uuid.UUID) (equipment.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.equipment[id]
	if !ok {
		return equipment.Equipment{}, domain.NotFound("equipment", id)
	}
	return e, nil
}

func (s *Store) ListEquipment(_ context.Context) ([]equipment.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]equipment.Equipment, 0, len(s.equipment))
	for _, e := range s.equipment {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) GetMaterial(_ context.Context, id uuid.UUID) (material.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.materials[id]
	if !ok {
		return material.Material{}, domain.NotFound("material", id)
	}
	return m, nil
}

func (s *Store) ListMaterials(_ context.Context) ([]material.Material, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]material.Material, 0, len(s.materials))
	for _, m := range s.materials {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
