// Package memory is an in-process implementation of every repository
// interface. It backs tests and the STORE=memory development mode, and keeps
// the same atomicity as the Postgres repositories: writes touching one
// equipment item or one material are serialized by a per-key lock.
package memory

import (
	"sort"
	"sync"

	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/equipment"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/domain/technician"
	"lab-scheduler/internal/domain/workorder"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
)

var (
	_ repository.SkillRepository       = (*Store)(nil)
	_ repository.TechnicianRepository  = (*Store)(nil)
	_ repository.WorkloadRepository    = (*Store)(nil)
	_ repository.TaskRepository        = (*Store)(nil)
	_ repository.WorkOrderRepository   = (*Store)(nil)
	_ repository.EquipmentRepository   = (*Store)(nil)
	_ repository.AllocationRepository  = (*Store)(nil)
	_ repository.ReservationRepository = (*Store)(nil)
	_ repository.MaterialRepository    = (*Store)(nil)
	_ repository.ConsumptionRepository = (*Store)(nil)
)

type Store struct {
	mu sync.RWMutex

	skills           map[uuid.UUID]skill.Skill
	technicians      map[uuid.UUID]technician.Technician
	technicianSkills map[uuid.UUID][]skill.TechnicianSkill
	workOrders       map[uuid.UUID]workorder.WorkOrder
	equipment        map[uuid.UUID]equipment.Equipment
	tasks            map[uuid.UUID]task.Task
	reservations     map[uuid.UUID]schedule.Reservation
	allocations      map[uuid.UUID]capacity.Allocation
	materials        map[uuid.UUID]material.Material
	consumptions     map[uuid.UUID]material.Consumption

	equipmentLocks *keyedMutex
	materialLocks  *keyedMutex
}

func NewStore() *Store {
	return &Store{
		skills:           map[uuid.UUID]skill.Skill{},
		technicians:      map[uuid.UUID]technician.Technician{},
		technicianSkills: map[uuid.UUID][]skill.TechnicianSkill{},
		workOrders:       map[uuid.UUID]workorder.WorkOrder{},
		equipment:        map[uuid.UUID]equipment.Equipment{},
		tasks:            map[uuid.UUID]task.Task{},
		reservations:     map[uuid.UUID]schedule.Reservation{},
		allocations:      map[uuid.UUID]capacity.Allocation{},
		materials:        map[uuid.UUID]material.Material{},
		consumptions:     map[uuid.UUID]material.Consumption{},
		equipmentLocks:   newKeyedMutex(),
		materialLocks:    newKeyedMutex(),
	}
}

func (s *Store) PutSkill(sk skill.Skill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills[sk.ID] = sk
}

func (s *Store) PutTechnician(t technician.Technician) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.technicians[t.ID] = t
}

// PutTechnicianSkill replaces any existing record for the same skill. The
// skill code is filled from the skill table when it is known.
func (s *Store) PutTechnicianSkill(ts skill.TechnicianSkill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sk, ok := s.skills[ts.SkillID]; ok && ts.SkillCode == "" {
		ts.SkillCode = sk.Code
	}
	list := s.technicianSkills[ts.TechnicianID]
	for i := range list {
		if list[i].SkillID == ts.SkillID {
			list[i] = ts
			return
		}
	}
	s.technicianSkills[ts.TechnicianID] = append(list, ts)
}

func (s *Store) PutEquipment(e equipment.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment[e.ID] = e
}

func (s *Store) PutMaterial(m material.Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.ID] = m
}

func (s *Store) PutWorkOrder(wo workorder.WorkOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workOrders[wo.ID] = wo
}

// keyedMutex hands out one mutex per id. Entries are never evicted; the key
// space is the equipment and material catalogue, which is small.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[uuid.UUID]*sync.Mutex{}}
}

func (k *keyedMutex) get(id uuid.UUID) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	return m
}

func (k *keyedMutex) Lock(id uuid.UUID) func() {
	m := k.get(id)
	m.Lock()
	return m.Unlock
}

// LockAll locks ids in sorted order and returns one unlock for all of them.
func (k *keyedMutex) LockAll(ids []uuid.UUID) func() {
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	unlocks := make([]func(), 0, len(sorted))
	for _, id := range sorted {
		unlocks = append(unlocks, k.Lock(id))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

func copyTask(t task.Task) task.Task {
	t.RequiredSkills = append([]skill.Requirement(nil), t.RequiredSkills...)
	return t
}
