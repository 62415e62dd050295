package gormrepository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
)

// postgres SQLSTATEs that mean "someone else won, try again".
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

var continuableTypes = []string{
	models.RecurrenceYearly,
	models.RecurrenceMonthly,
	models.RecurrenceRelativePosition,
}

var closedIntentionStatuses = []string{
	models.IntentionStatusCompleted,
	models.IntentionStatusCancelled,
}

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Repository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return classify(s.db.WithContext(ctx).Transaction(fn))
}

// InSerializableTx runs fn at SERIALIZABLE isolation. Serialization failures
// surface as repository.ErrConflict.
func (s *Store) InSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return classify(s.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable}))
}

// --- celebrants & availability ----------------------------------------------

func (s *Store) ListCelebrants(ctx context.Context, activeOnly bool) ([]models.Celebrant, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Celebrant{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var items []models.Celebrant
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveCelebrants(ctx context.Context) ([]models.Celebrant, error) {
	return s.ListCelebrants(ctx, true)
}

func (s *Store) GetCelebrant(ctx context.Context, id uint64) (*models.Celebrant, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Celebrant
	err := s.db.WithContext(ctx).Model(&models.Celebrant{}).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListUnavailableDays(ctx context.Context) ([]models.UnavailableDay, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.UnavailableDay
	if err := s.db.WithContext(ctx).
		Model(&models.UnavailableDay{}).
		Order("celebrant_id asc, date asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListAssignedEventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Event
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("celebrant_id IS NOT NULL AND date IS NOT NULL").
		Where("status <> ?", models.EventStatusCancelled).
		Where("date BETWEEN ? AND ?", dateArg(from), dateArg(to)).
		Order("date asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CelebrantBlockedTx is the in-transaction re-check done at confirmation.
func (s *Store) CelebrantBlockedTx(ctx context.Context, tx *gorm.DB, celebrantID uint64, date time.Time) (bool, error) {
	db := s.conn(ctx, tx)
	if db == nil {
		return false, nil
	}
	day := dateArg(date)
	var booked int64
	if err := db.Model(&models.Event{}).
		Where("celebrant_id = ? AND date = ? AND status <> ?", celebrantID, day, models.EventStatusCancelled).
		Count(&booked).Error; err != nil {
		return false, err
	}
	if booked > 0 {
		return true, nil
	}
	var blocked int64
	if err := db.Model(&models.UnavailableDay{}).
		Where("celebrant_id = ?", celebrantID).
		Where("(date = ?) OR (recurring_yearly AND EXTRACT(MONTH FROM date) = ? AND EXTRACT(DAY FROM date) = ?)",
			day, int(date.Month()), date.Day()).
		Count(&blocked).Error; err != nil {
		return false, err
	}
	return blocked > 0, nil
}

// --- intentions & events ----------------------------------------------------

// CreateIntentionTx inserts the intention with its recurrence. Events are
// written separately by CreateEventsTx.
func (s *Store) CreateIntentionTx(ctx context.Context, tx *gorm.DB, item *models.Intention) error {
	db := s.conn(ctx, tx)
	if db == nil || item == nil {
		return nil
	}
	return classify(db.Omit("Events").Create(item).Error)
}

func (s *Store) CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error {
	db := s.conn(ctx, tx)
	if db == nil || len(items) == 0 {
		return nil
	}
	return classify(db.Omit(clause.Associations).CreateInBatches(items, 200).Error)
}

func (s *Store) GetIntention(ctx context.Context, id uint64) (*models.Intention, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Intention
	err := s.db.WithContext(ctx).
		Preload("Recurrence").
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("date asc NULLS LAST, id asc")
		}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListIntentionEvents(ctx context.Context, intentionID uint64) ([]models.Event, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Event
	if err := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("intention_id = ? AND status <> ?", intentionID, models.EventStatusCancelled).
		Order("date asc NULLS LAST, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListNoEndIntentions returns open intentions whose recurrence the sweep extends.
func (s *Store) ListNoEndIntentions(ctx context.Context) ([]models.Intention, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Intention
	if err := s.db.WithContext(ctx).
		Model(&models.Intention{}).
		Joins("JOIN recurrences ON recurrences.id = intentions.recurrence_id").
		Where("recurrences.end_type = ?", models.EndTypeNoEnd).
		Where("recurrences.type IN ?", continuableTypes).
		Where("intentions.status NOT IN ?", closedIntentionStatuses).
		Preload("Recurrence").
		Order("intentions.id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CompleteEventsDueTx moves scheduled events dated on or before asOf to
// completed and returns their ids. Already completed rows are not touched.
func (s *Store) CompleteEventsDueTx(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]uint64, error) {
	db := s.conn(ctx, tx)
	if db == nil {
		return nil, nil
	}
	var rows []models.Event
	res := db.Model(&rows).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where("status = ? AND date IS NOT NULL AND date <= ?", models.EventStatusScheduled, dateArg(asOf)).
		Updates(map[string]any{
			"status":     models.EventStatusCompleted,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	ids := make([]uint64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s *Store) ListIntentionProgress(ctx context.Context) ([]repository.IntentionProgress, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []repository.IntentionProgress
	err := s.db.WithContext(ctx).Raw(`
SELECT i.id AS intention_id,
       i.status AS status,
       COUNT(e.id) FILTER (WHERE e.status <> ?) AS total,
       COUNT(e.id) FILTER (WHERE e.status = ?) AS completed,
       COALESCE(r.end_type = ? AND r.type IN ?, false) AS no_end
FROM intentions i
LEFT JOIN events e ON e.intention_id = i.id
LEFT JOIN recurrences r ON r.id = i.recurrence_id
WHERE i.status NOT IN ?
GROUP BY i.id, i.status, r.end_type, r.type
ORDER BY i.id`,
		models.EventStatusCancelled,
		models.EventStatusCompleted,
		models.EndTypeNoEnd,
		continuableTypes,
		closedIntentionStatuses,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateIntentionStatusTx changes an open intention's status and reports
// whether a row changed.
func (s *Store) UpdateIntentionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) (bool, error) {
	db := s.conn(ctx, tx)
	if db == nil {
		return false, nil
	}
	res := db.Model(&models.Intention{}).
		Where("id = ?", id).
		Where("status NOT IN ? AND status <> ?", closedIntentionStatuses, status).
		Update("status", status)
	return res.RowsAffected > 0, res.Error
}

// --- sweep audit ------------------------------------------------------------

func (s *Store) InsertSweepRun(ctx context.Context, item *models.SweepRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListSweepRuns(ctx context.Context, params repository.ListSweepRunsParams) ([]models.SweepRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SweepRun{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("started_at >= ?", *params.Since)
	}
	var items []models.SweepRun
	if err := query.
		Order("started_at desc").
		Limit(normalizeLimit(params.Limit, 50)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- special days -----------------------------------------------------------

func (s *Store) ListSpecialDays(ctx context.Context, from, to time.Time) ([]models.SpecialDay, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SpecialDay
	if err := s.db.WithContext(ctx).
		Model(&models.SpecialDay{}).
		Where("date BETWEEN ? AND ?", dateArg(from), dateArg(to)).
		Order("date asc, id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertSpecialDays(ctx context.Context, items []models.SpecialDay) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "source"}, {Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
	}).CreateInBatches(items, 200).Error
}

// --- system settings --------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, prefix string) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if p := strings.TrimSpace(prefix); p != "" {
		query = query.Where("key LIKE ?", p+"%")
	}
	var items []models.SystemSetting
	if err := query.Order("key asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers ----------------------------------------------------------------

func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx)
}

// classify folds unique-index violations and serialization failures into
// repository.ErrConflict, keeping the driver error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", repository.ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %w", repository.ErrConflict, err)
		}
	}
	return err
}

// dateArg passes a calendar date as YYYY-MM-DD so the session timezone
// cannot shift it when compared against DATE columns.
func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
