package seeder

import "time"

// Defaults returns the seeders in dependency order.
func Defaults(now time.Time) []Seeder {
	fx := DefaultFixtures(now)
	return []Seeder{
		SkillsSeeder{Fixtures: fx},
		TechniciansSeeder{Fixtures: fx},
		EquipmentSeeder{Fixtures: fx},
		MaterialsSeeder{Fixtures: fx},
		WorkOrdersSeeder{Fixtures: fx},
	}
}
