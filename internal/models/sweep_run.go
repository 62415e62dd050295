package models

import (
	"time"

	"gorm.io/datatypes"
)

// SweepRun records one lifecycle sweep.
type SweepRun struct {
	ID    uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RunID string    `gorm:"type:varchar(36);not null;uniqueIndex" json:"run_id"`
	AsOf  time.Time `gorm:"type:date;not null;index" json:"as_of"`

	CompletedEvents     int `gorm:"not null;default:0" json:"completed_events"`
	CompletedIntentions int `gorm:"not null;default:0" json:"completed_intentions"`
	ContinuedIntentions int `gorm:"not null;default:0" json:"continued_intentions"`
	SkippedIntentions   int `gorm:"not null;default:0" json:"skipped_intentions"`

	// Details holds the touched ids and skip reasons.
	Details datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	Error   string         `gorm:"type:text" json:"error,omitempty"`

	StartedAt  time.Time `gorm:"type:timestamptz;not null" json:"started_at"`
	FinishedAt time.Time `gorm:"type:timestamptz;not null" json:"finished_at"`
}

func (SweepRun) TableName() string {
	return "sweep_runs"
}
