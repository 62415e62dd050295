package models

const (
	EventStatusPending   = "pending"
	EventStatusScheduled = "scheduled"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"
)

const (
	IntentionStatusPending    = "pending"
	IntentionStatusScheduled  = "scheduled"
	IntentionStatusInProgress = "in_progress"
	IntentionStatusCompleted  = "completed"
	IntentionStatusCancelled  = "cancelled"
)

const (
	DateTypeImperative  = "imperative"
	DateTypeDesired     = "desired"
	DateTypeIndifferent = "indifferent"
)

const (
	IntentionTypeUnit   = "unit"
	IntentionTypeNovena = "novena"
	IntentionTypeThirty = "thirty"
)

const (
	RecurrenceDaily            = "daily"
	RecurrenceWeekly           = "weekly"
	RecurrenceMonthly          = "monthly"
	RecurrenceYearly           = "yearly"
	RecurrenceRelativePosition = "relative_position"
)

const (
	EndTypeOccurrences = "occurrences"
	EndTypeDate        = "date"
	EndTypeNoEnd       = "no-end"
)
