package db

import (
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

// One celebrant, one Mass per day. Cancelled and unassigned rows do not count.
const createEventCelebrantDateIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS uniq_events_celebrant_date
ON events (celebrant_id, date)
WHERE celebrant_id IS NOT NULL AND date IS NOT NULL AND status <> 'cancelled'`

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	if err := db.Gorm.AutoMigrate(
		&models.Celebrant{},
		&models.UnavailableDay{},
		&models.Recurrence{},
		&models.Intention{},
		&models.Event{},
		&models.SpecialDay{},
		&models.SweepRun{},
		&models.SystemSetting{},
	); err != nil {
		return err
	}
	return db.Gorm.Exec(createEventCelebrantDateIndex).Error
}
