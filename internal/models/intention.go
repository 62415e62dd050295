package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Intention is a request for one or more celebrations.
type Intention struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Description string `gorm:"type:text;not null" json:"description"`
	Deceased    bool   `gorm:"not null;default:false" json:"deceased"`

	// OccurrenceCount is ignored when a Recurrence is attached.
	OccurrenceCount int    `gorm:"not null;default:1" json:"occurrence_count"`
	IntentionType   string `gorm:"type:varchar(20);not null;default:'unit'" json:"intention_type"`
	DateType        string `gorm:"type:varchar(20);not null" json:"date_type"`

	RequestedDate *time.Time `gorm:"type:date" json:"requested_date,omitempty"`
	// CelebrantID is the requested celebrant; NULL means any celebrant.
	CelebrantID *uint64 `gorm:"index" json:"celebrant_id,omitempty"`
	DonorID     *uint64 `gorm:"index" json:"donor_id,omitempty"`

	RecurrenceID *uint64     `gorm:"index" json:"recurrence_id,omitempty"`
	Recurrence   *Recurrence `gorm:"constraint:OnDelete:SET NULL" json:"recurrence,omitempty"`

	Offering decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"offering"`
	Status   string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	Events []Event `gorm:"constraint:OnDelete:CASCADE" json:"events,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Intention) TableName() string {
	return "intentions"
}

// Recurrence generates the dates of a recurring Intention.
type Recurrence struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"type:varchar(30);not null" json:"type"`
	StartDate time.Time `gorm:"type:date;not null" json:"start_date"`

	EndType     string     `gorm:"type:varchar(20);not null" json:"end_type"`
	Occurrences *int       `json:"occurrences,omitempty"`
	EndDate     *time.Time `gorm:"type:date" json:"end_date,omitempty"`

	// Position and Weekday are set only for relative_position.
	Position *string `gorm:"type:varchar(10)" json:"position,omitempty"`
	Weekday  *string `gorm:"type:varchar(10)" json:"weekday,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Recurrence) TableName() string {
	return "recurrences"
}
