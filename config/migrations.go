package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
	"p9e.in/rigops/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "01092025_create_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.LocationNode{}, &models.LocationAssignment{},
					&models.Well{}, &models.WellTransition{}, &models.DailyReport{}, &models.ReportSchedule{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("report_schedules", "daily_reports", "well_transitions",
					"wells", "user_location_assignments", "well_hierarchy", "users")
			},
		},
		{
			// Optional levels are NULL, and NULLs never collide in a plain
			// unique index, so the paths are compared through COALESCE.
			ID: "01092025_add_path_unique_indexes",
			Migrate: func(tx *gorm.DB) error {
				stmts := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS uq_well_hierarchy_path ON well_hierarchy
						(country, COALESCE(project, ''), COALESCE(unit, ''), COALESCE(unit_number, ''))`,
					`CREATE UNIQUE INDEX IF NOT EXISTS uq_user_location_assignment ON user_location_assignments
						(user_id, country, COALESCE(project, ''), COALESCE(unit, ''))`,
					`CREATE UNIQUE INDEX IF NOT EXISTS uq_report_schedules_active ON report_schedules (is_active)
						WHERE is_active`,
				}
				for _, s := range stmts {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				for _, idx := range []string{"uq_well_hierarchy_path", "uq_user_location_assignment", "uq_report_schedules_active"} {
					if err := tx.Exec("DROP INDEX IF EXISTS " + idx).Error; err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			ID: "20092025_add_hse_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Hazard{}, &models.HSETask{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("hse_tasks", "hazards")
			},
		},
		{
			ID: "02102025_add_well_construction_fields",
			Migrate: func(tx *gorm.DB) error {
				for _, col := range []string{"WellShape", "HoleSize", "CasingSize", "ArtificialLift"} {
					if tx.Migrator().HasColumn(&models.Well{}, col) {
						continue
					}
					if err := tx.Migrator().AddColumn(&models.Well{}, col); err != nil {
						return err
					}
				}
				return nil
			},
		},
	})

	return m.Migrate()
}
