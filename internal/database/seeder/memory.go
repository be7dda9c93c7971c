package seeder

import "lab-scheduler/internal/repository/memory"

// LoadMemory puts the fixtures into an in-memory store.
func LoadMemory(store *memory.Store, fx Fixtures) {
	for _, it := range fx.Skills {
		store.PutSkill(it)
	}
	for _, it := range fx.Technicians {
		store.PutTechnician(it)
	}
	for _, it := range fx.TechnicianSkills {
		store.PutTechnicianSkill(it)
	}
	for _, it := range fx.Equipment {
		store.PutEquipment(it)
	}
	for _, it := range fx.Materials {
		store.PutMaterial(it)
	}
	for _, it := range fx.WorkOrders {
		store.PutWorkOrder(it)
	}
}
