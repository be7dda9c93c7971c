package seeder

import (
	"time"

	"lab-scheduler/internal/domain/equipment"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/technician"
	"lab-scheduler/internal/domain/workorder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// namespace derives stable ids so re-running a seed never duplicates rows and
// fixtures can be referenced by code from tests and scripts.
var namespace = uuid.MustParse("6b3f7c1e-2a4d-4f0e-9c8b-5d1a2e3f4b6c")

func ID(kind, code string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(kind+":"+code))
}

// Fixtures is the lab reference data shared by the Postgres seeders and the
// in-memory loader.
type Fixtures struct {
	Skills           []skill.Skill
	Technicians      []technician.Technician
	TechnicianSkills []skill.TechnicianSkill
	Equipment        []equipment.Equipment
	Materials        []material.Material
	WorkOrders       []workorder.WorkOrder
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }

// DefaultFixtures builds the reference data relative to now so that
// certification expiries and SLA deadlines stay meaningful.
func DefaultFixtures(now time.Time) Fixtures {
	now = now.UTC().Truncate(time.Second)

	skills := []skill.Skill{
		{Code: "PCR", Name: "PCR amplification", Category: "Molecular", RequiresCertification: false},
		{Code: "HPLC", Name: "HPLC operation", Category: "Chromatography", RequiresCertification: true, CertificationValidityDays: intPtr(365)},
		{Code: "BSL2", Name: "BSL-2 handling", Category: "Biosafety", RequiresCertification: true, CertificationValidityDays: intPtr(730)},
		{Code: "MICRO", Name: "Microscopy", Category: "Imaging", RequiresCertification: false},
		{Code: "SEQ", Name: "Sequencing library prep", Category: "Molecular", RequiresCertification: false},
	}
	for i := range skills {
		skills[i].ID = ID("skill", skills[i].Code)
		skills[i].CreatedAt = now
	}

	techs := []technician.Technician{
		{Name: "Ayu Lestari", Status: technician.StatusAvailable, Site: "north", Lab: strPtr("molecular")},
		{Name: "Budi Santoso", Status: technician.StatusAvailable, Site: "north", Lab: strPtr("chromatography")},
		{Name: "Citra Dewi", Status: technician.StatusBusy, Site: "south", Lab: strPtr("molecular")},
		{Name: "Dimas Pratama", Status: technician.StatusOnLeave, Site: "south"},
		{Name: "Eka Putri", Status: technician.StatusBorrowed, Site: "north", Lab: strPtr("imaging")},
	}
	for i := range techs {
		techs[i].ID = ID("technician", techs[i].Name)
		techs[i].CreatedAt = now
	}

	held := func(tech, code string, p skill.Proficiency, certified bool, expiry *time.Time) skill.TechnicianSkill {
		return skill.TechnicianSkill{
			TechnicianID:        ID("technician", tech),
			SkillID:             ID("skill", code),
			SkillCode:           code,
			Proficiency:         p,
			IsCertified:         certified,
			CertificationExpiry: expiry,
		}
	}
	techSkills := []skill.TechnicianSkill{
		held("Ayu Lestari", "PCR", skill.Expert, false, nil),
		held("Ayu Lestari", "SEQ", skill.Advanced, false, nil),
		held("Ayu Lestari", "BSL2", skill.Intermediate, true, timePtr(now.AddDate(0, 6, 0))),
		held("Budi Santoso", "HPLC", skill.Expert, true, timePtr(now.AddDate(0, 1, 0))),
		held("Budi Santoso", "PCR", skill.Intermediate, false, nil),
		held("Citra Dewi", "PCR", skill.Advanced, false, nil),
		held("Citra Dewi", "HPLC", skill.Advanced, true, timePtr(now.AddDate(0, 0, -3))),
		held("Dimas Pratama", "MICRO", skill.Expert, false, nil),
		held("Eka Putri", "MICRO", skill.Advanced, false, nil),
		held("Eka Putri", "BSL2", skill.Beginner, true, nil),
	}

	eq := []equipment.Equipment{
		{Name: "HPLC-01", Category: "chromatography", Strategy: equipment.Exclusive{}},
		{Name: "Sequencer-01", Category: "sequencing", Strategy: equipment.Exclusive{}},
		{Name: "Thermocycler Bank", Category: "pcr", Strategy: equipment.Capacitated{Slots: 8}},
		{Name: "Biosafety Cabinet Row", Category: "biosafety", Strategy: equipment.Capacitated{Slots: 3}},
	}
	for i := range eq {
		eq[i].ID = ID("equipment", eq[i].Name)
		eq[i].CreatedAt = now
	}

	mats := []material.Material{
		{Code: "RGT-TAQ", Name: "Taq polymerase", Unit: "unit", Quantity: decimal.NewFromInt(500), UnitPrice: floatPtr(0.8)},
		{Code: "RGT-ACN", Name: "Acetonitrile HPLC grade", Unit: "ml", Quantity: decimal.NewFromInt(10000), UnitPrice: floatPtr(0.05)},
		{Code: "KIT-LIB", Name: "Library prep kit", Unit: "kit", Quantity: decimal.NewFromInt(10), UnitPrice: floatPtr(420)},
		{Code: "CON-TIPS", Name: "Filter tips 200ul", Unit: "box", Quantity: decimal.NewFromInt(120)},
	}
	for i := range mats {
		mats[i].ID = ID("material", mats[i].Code)
		mats[i].UpdatedAt = now
	}

	wos := []workorder.WorkOrder{
		{Code: "WO-1001", SLADeadline: timePtr(now.Add(48 * time.Hour)), SourceCategoryWeight: 8, ClientPriorityWeight: 6},
		{Code: "WO-1002", SLADeadline: timePtr(now.Add(10 * 24 * time.Hour)), SourceCategoryWeight: 4, ClientPriorityWeight: 9},
		{Code: "WO-1003", SLADeadline: timePtr(now.Add(-6 * time.Hour)), SourceCategoryWeight: 5, ClientPriorityWeight: 5},
		{Code: "WO-1004", SourceCategoryWeight: 2, ClientPriorityWeight: 3},
	}
	for i := range wos {
		wos[i].ID = ID("work_order", wos[i].Code)
		wos[i].Status = workorder.StatusOpen
		wos[i].CreatedAt = now
		wos[i].UpdatedAt = now
	}

	return Fixtures{
		Skills:           skills,
		Technicians:      techs,
		TechnicianSkills: techSkills,
		Equipment:        eq,
		Materials:        mats,
		WorkOrders:       wos,
	}
}
