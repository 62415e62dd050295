package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

// ErrConflict wraps unique-index violations and serialization failures.
// Callers retry or re-read; the data they acted on is stale.
var ErrConflict = errors.New("repository: conflict")

// Repository is everything the engine, the sweep and the API read or write.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	InSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// celebrants and availability
	ListCelebrants(ctx context.Context, activeOnly bool) ([]models.Celebrant, error)
	ListActiveCelebrants(ctx context.Context) ([]models.Celebrant, error)
	GetCelebrant(ctx context.Context, id uint64) (*models.Celebrant, error)
	ListUnavailableDays(ctx context.Context) ([]models.UnavailableDay, error)
	ListAssignedEventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error)
	CelebrantBlockedTx(ctx context.Context, tx *gorm.DB, celebrantID uint64, date time.Time) (bool, error)

	// intentions and events
	CreateIntentionTx(ctx context.Context, tx *gorm.DB, item *models.Intention) error
	CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error
	GetIntention(ctx context.Context, id uint64) (*models.Intention, error)
	ListIntentionEvents(ctx context.Context, intentionID uint64) ([]models.Event, error)
	ListNoEndIntentions(ctx context.Context) ([]models.Intention, error)
	CompleteEventsDueTx(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]uint64, error)
	ListIntentionProgress(ctx context.Context) ([]IntentionProgress, error)
	UpdateIntentionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) (bool, error)

	// sweep audit
	InsertSweepRun(ctx context.Context, item *models.SweepRun) error
	ListSweepRuns(ctx context.Context, params ListSweepRunsParams) ([]models.SweepRun, error)

	// special days
	ListSpecialDays(ctx context.Context, from, to time.Time) ([]models.SpecialDay, error)
	UpsertSpecialDays(ctx context.Context, items []models.SpecialDay) error

	// system settings
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	ListSystemSettings(ctx context.Context, prefix string) ([]models.SystemSetting, error)
}

// IntentionProgress summarizes the non-cancelled events of an open intention.
type IntentionProgress struct {
	IntentionID uint64
	Status      string
	Total       int
	Completed   int
	// NoEnd marks intentions extended by the continuation step.
	NoEnd bool
}

type ListSweepRunsParams struct {
	Limit  int
	Offset int
	Since  *time.Time
}
