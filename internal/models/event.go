package models

import "time"

// Event is one concrete celebration of an Intention (a "Mass").
type Event struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	IntentionID uint64 `gorm:"not null;index" json:"intention_id"`

	// Date and CelebrantID stay NULL until the occurrence is assigned.
	// (celebrant_id, date) is unique among non-cancelled rows; see db.AutoMigrate.
	Date        *time.Time `gorm:"type:date;index" json:"date,omitempty"`
	CelebrantID *uint64    `gorm:"index" json:"celebrant_id,omitempty"`
	Celebrant   *Celebrant `gorm:"constraint:OnDelete:SET NULL" json:"celebrant,omitempty"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// RequestedDate is the date hint the occurrence was resolved from.
	RequestedDate *time.Time `gorm:"type:date" json:"requested_date,omitempty"`
	BatchID       string     `gorm:"type:varchar(36);index" json:"batch_id"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Event) TableName() string {
	return "events"
}

// Assigned reports whether the event holds both a date and a celebrant.
func (e Event) Assigned() bool {
	return e.Date != nil && e.CelebrantID != nil
}
