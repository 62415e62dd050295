package models

import "time"

// Celebrant is maintained by administrators; the engine only reads it.
type Celebrant struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string `gorm:"type:varchar(200);not null" json:"name"`
	Title  string `gorm:"type:varchar(50)" json:"title"`
	Role   string `gorm:"type:varchar(50)" json:"role"`
	Active bool   `gorm:"not null;default:true;index" json:"active"`

	UnavailableDays []UnavailableDay `gorm:"constraint:OnDelete:CASCADE" json:"unavailable_days,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Celebrant) TableName() string {
	return "celebrants"
}

// UnavailableDay blocks a celebrant on one date, or on that month/day every
// year when RecurringYearly is set.
type UnavailableDay struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	CelebrantID     uint64    `gorm:"not null;index" json:"celebrant_id"`
	Date            time.Time `gorm:"type:date;not null" json:"date"`
	RecurringYearly bool      `gorm:"not null;default:false" json:"recurring_yearly"`
	Reason          string    `gorm:"type:varchar(200)" json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (UnavailableDay) TableName() string {
	return "unavailable_days"
}

// Matches reports whether the record blocks the given calendar date.
func (u UnavailableDay) Matches(date time.Time) bool {
	if u.RecurringYearly {
		return u.Date.Month() == date.Month() && u.Date.Day() == date.Day()
	}
	return u.Date.Year() == date.Year() && u.Date.Month() == date.Month() && u.Date.Day() == date.Day()
}
