package models

import "time"

// SpecialDay is a blackout date skipped by the indifferent search.
type SpecialDay struct {
	ID     uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Date   time.Time `gorm:"type:date;not null;index;uniqueIndex:uniq_special_day" json:"date"`
	Title  string    `gorm:"type:varchar(200);not null" json:"title"`
	Source string    `gorm:"type:varchar(20);not null;default:'manual';uniqueIndex:uniq_special_day" json:"source"`
	// UID identifies the upstream calendar entry for idempotent re-imports.
	UID string `gorm:"type:varchar(255);not null;default:'';uniqueIndex:uniq_special_day" json:"uid"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (SpecialDay) TableName() string {
	return "special_days"
}
