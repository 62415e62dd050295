// Package scheduler fans an intention draft out into occurrences, resolves
// each through the assignment policy, and commits confirmed previews.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/assignment"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/availability"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/recurrence"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/workload"
)

const (
	novenaLength = 9
	thirtyLength = 30
)

var (
	ErrInvalidDraft     = errors.New("scheduler: invalid draft")
	ErrPreviewMismatch  = errors.New("scheduler: preview does not match draft")
	ErrScheduleConflict = errors.New("scheduler: schedule conflict")
)

// Store is what preview and confirm need from persistence.
type Store interface {
	availability.Store
	GetCelebrant(ctx context.Context, id uint64) (*models.Celebrant, error)
	InSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	// CelebrantBlockedTx re-reads bookings and unavailable days inside tx.
	CelebrantBlockedTx(ctx context.Context, tx *gorm.DB, celebrantID uint64, date time.Time) (bool, error)
	CreateIntentionTx(ctx context.Context, tx *gorm.DB, item *models.Intention) error
	CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error
}

// Draft is an intention as submitted, before anything is persisted.
type Draft struct {
	Description     string
	Deceased        bool
	OccurrenceCount int
	IntentionType   string
	DateType        string
	RequestedDate   *time.Time
	CelebrantID     *uint64
	DonorID         *uint64
	Offering        decimal.Decimal
	Recurrence      *models.Recurrence
}

type PreviewItem struct {
	Index        int
	Date         *time.Time
	CelebrantID  *uint64
	Status       string
	ErrorCode    string
	OriginalDate *time.Time
	ChangedDate  bool
}

type PreviewResult struct {
	Items []PreviewItem
}

// Counts returns how many items ended scheduled, pending and in error.
func (p PreviewResult) Counts() (scheduled, pending, failed int) {
	for _, it := range p.Items {
		switch it.Status {
		case assignment.StatusScheduled:
			scheduled++
		case assignment.StatusPending:
			pending++
		default:
			failed++
		}
	}
	return scheduled, pending, failed
}

type ConfirmResult struct {
	IntentionID uint64
	EventIDs    []uint64
	BatchID     string
}

type Scheduler struct {
	Store    Store
	Blackout assignment.Blackout
	Logger   *zap.Logger
	Expander recurrence.Expander

	HorizonDays        int
	WorkloadWindowDays int
	Now                func() time.Time
	Location           *time.Location

	// NewBatchID is replaced in tests.
	NewBatchID func() string
}

// plan is the occurrence layout of a draft.
type plan struct {
	count int
	// fixed holds the exact date of every occurrence when the draft pins them.
	fixed []time.Time
	// series is true for novena and thirty: consecutive days from the first.
	series bool
}

// Preview resolves every occurrence without writing anything.
func (s *Scheduler) Preview(ctx context.Context, d Draft) (PreviewResult, error) {
	if s == nil || s.Store == nil {
		return PreviewResult{}, errors.New("scheduler: not configured")
	}
	d, err := s.normalize(ctx, d)
	if err != nil {
		return PreviewResult{}, err
	}
	p, err := s.plan(d)
	if err != nil {
		return PreviewResult{}, err
	}

	policy := s.newPolicy()
	usage := assignment.NewBatchUsage()
	items := make([]PreviewItem, 0, p.count)

	add := func(o assignment.Outcome) {
		usage.Record(o)
		items = append(items, toItem(len(items), o))
	}

	switch {
	case d.Recurrence != nil:
		dateType := d.DateType
		if dateType == models.DateTypeIndifferent {
			dateType = models.DateTypeImperative
		}
		for _, day := range p.fixed {
			o, err := policy.Resolve(ctx, assignment.Request{DateHint: &day, DateType: dateType, CelebrantID: d.CelebrantID}, usage)
			if err != nil {
				return PreviewResult{}, err
			}
			add(o)
		}

	case p.series:
		first, err := policy.Resolve(ctx, assignment.Request{DateHint: d.RequestedDate, DateType: d.DateType, CelebrantID: d.CelebrantID}, usage)
		if err != nil {
			return PreviewResult{}, err
		}
		add(first)
		for i := 1; i < p.count; i++ {
			if !first.Scheduled() {
				add(assignment.Outcome{Status: first.Status, ErrorCode: first.ErrorCode, OriginalDate: first.OriginalDate})
				continue
			}
			day := first.Date.AddDate(0, 0, i)
			o, err := s.resolveFixed(ctx, policy, usage, day, d.CelebrantID, first.CelebrantID)
			if err != nil {
				return PreviewResult{}, err
			}
			add(o)
		}

	default:
		for i := 0; i < p.count; i++ {
			o, err := policy.Resolve(ctx, assignment.Request{DateHint: d.RequestedDate, DateType: d.DateType, CelebrantID: d.CelebrantID}, usage)
			if err != nil {
				return PreviewResult{}, err
			}
			add(o)
		}
	}

	result := PreviewResult{Items: items}
	if s.Logger != nil {
		scheduled, pending, failed := result.Counts()
		s.Logger.Debug("schedule preview",
			zap.String("intention_type", d.IntentionType),
			zap.String("date_type", d.DateType),
			zap.Int("occurrences", len(items)),
			zap.Int("scheduled", scheduled),
			zap.Int("pending", pending),
			zap.Int("failed", failed),
		)
	}
	return result, nil
}

// resolveFixed books one series day. Without a requested celebrant the
// anchor's celebrant is tried first so the series stays with one person
// whenever possible.
func (s *Scheduler) resolveFixed(ctx context.Context, policy *assignment.Policy, usage *assignment.BatchUsage, day time.Time, requested, preferred *uint64) (assignment.Outcome, error) {
	req := assignment.Request{DateHint: &day, DateType: models.DateTypeImperative, CelebrantID: requested}
	if requested == nil && preferred != nil {
		req.CelebrantID = preferred
		o, err := policy.Resolve(ctx, req, usage)
		if err != nil || o.Scheduled() {
			return o, err
		}
		req.CelebrantID = nil
	}
	return policy.Resolve(ctx, req, usage)
}

// Confirm persists the intention and one event per preview item in a single
// serializable transaction. Bookings that went stale since the preview, and
// unique index or serialization failures, roll back the whole batch with
// ErrScheduleConflict.
func (s *Scheduler) Confirm(ctx context.Context, d Draft, preview PreviewResult) (ConfirmResult, error) {
	if s == nil || s.Store == nil {
		return ConfirmResult{}, errors.New("scheduler: not configured")
	}
	d, err := s.normalize(ctx, d)
	if err != nil {
		return ConfirmResult{}, err
	}
	p, err := s.plan(d)
	if err != nil {
		return ConfirmResult{}, err
	}
	if err := checkPreview(d, p, preview); err != nil {
		return ConfirmResult{}, err
	}
	if err := s.checkDates(ctx, d, p, preview); err != nil {
		return ConfirmResult{}, err
	}

	batchID := s.batchID()
	intention := buildIntention(d, preview)
	events := buildEvents(preview, batchID)

	err = s.Store.InSerializableTx(ctx, func(tx *gorm.DB) error {
		for _, ev := range events {
			if !ev.Assigned() {
				continue
			}
			blocked, err := s.Store.CelebrantBlockedTx(ctx, tx, *ev.CelebrantID, *ev.Date)
			if err != nil {
				return err
			}
			if blocked {
				return fmt.Errorf("%w: celebrant %d is no longer free on %s", ErrScheduleConflict, *ev.CelebrantID, calendar.DayKey(*ev.Date))
			}
		}
		if err := s.Store.CreateIntentionTx(ctx, tx, &intention); err != nil {
			return err
		}
		for i := range events {
			events[i].IntentionID = intention.ID
		}
		return s.Store.CreateEventsTx(ctx, tx, events)
	})
	if err != nil {
		if isConflict(err) && !errors.Is(err, ErrScheduleConflict) {
			err = fmt.Errorf("%w: %v", ErrScheduleConflict, err)
		}
		if s.Logger != nil {
			s.Logger.Warn("schedule confirm failed", zap.String("batch_id", batchID), zap.Error(err))
		}
		return ConfirmResult{}, err
	}

	out := ConfirmResult{IntentionID: intention.ID, BatchID: batchID, EventIDs: make([]uint64, 0, len(events))}
	for _, ev := range events {
		out.EventIDs = append(out.EventIDs, ev.ID)
	}
	if s.Logger != nil {
		s.Logger.Info("schedule confirmed",
			zap.Uint64("intention_id", intention.ID),
			zap.String("batch_id", batchID),
			zap.Int("events", len(events)),
			zap.String("status", intention.Status),
		)
	}
	return out, nil
}

func (s *Scheduler) newPolicy() *assignment.Policy {
	res := availability.NewResolver(s.Store)
	res.Ranker = &workload.Balancer{Counter: res, WindowDays: s.WorkloadWindowDays}
	return &assignment.Policy{
		Availability: res,
		Blackout:     s.Blackout,
		HorizonDays:  s.HorizonDays,
		Now:          s.Now,
		Location:     s.Location,
	}
}

// normalize validates d and fills defaults. It runs before any date math.
func (s *Scheduler) normalize(ctx context.Context, d Draft) (Draft, error) {
	d.Description = strings.TrimSpace(d.Description)
	if d.Description == "" {
		return d, fmt.Errorf("%w: description required", ErrInvalidDraft)
	}
	d.DateType = strings.ToLower(strings.TrimSpace(d.DateType))
	switch d.DateType {
	case models.DateTypeImperative, models.DateTypeDesired, models.DateTypeIndifferent:
	default:
		return d, fmt.Errorf("%w: unknown date type %q", ErrInvalidDraft, d.DateType)
	}
	if d.Offering.IsNegative() {
		return d, fmt.Errorf("%w: offering must not be negative", ErrInvalidDraft)
	}
	if d.RequestedDate != nil {
		day := calendar.Day(*d.RequestedDate)
		d.RequestedDate = &day
	}

	if d.Recurrence != nil {
		rec := *d.Recurrence
		rec.StartDate = calendar.Day(rec.StartDate)
		if rec.EndDate != nil {
			end := calendar.Day(*rec.EndDate)
			rec.EndDate = &end
		}
		if err := recurrence.Validate(rec); err != nil {
			return d, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
		}
		d.Recurrence = &rec
	} else {
		d.IntentionType = strings.ToLower(strings.TrimSpace(d.IntentionType))
		if d.IntentionType == "" {
			d.IntentionType = models.IntentionTypeUnit
		}
		switch d.IntentionType {
		case models.IntentionTypeUnit:
			if d.OccurrenceCount == 0 {
				d.OccurrenceCount = 1
			}
			if d.OccurrenceCount < 1 {
				return d, fmt.Errorf("%w: occurrence count must be >= 1", ErrInvalidDraft)
			}
			if limit := s.maxOccurrences(); d.OccurrenceCount > limit {
				return d, fmt.Errorf("%w: %w: more than %d", ErrInvalidDraft, recurrence.ErrTooManyOccurrences, limit)
			}
		case models.IntentionTypeNovena:
			d.OccurrenceCount = novenaLength
		case models.IntentionTypeThirty:
			d.OccurrenceCount = thirtyLength
		default:
			return d, fmt.Errorf("%w: unknown intention type %q", ErrInvalidDraft, d.IntentionType)
		}
		if d.DateType != models.DateTypeIndifferent && d.RequestedDate == nil {
			return d, fmt.Errorf("%w: %s date requires a requested date", ErrInvalidDraft, d.DateType)
		}
	}

	if d.CelebrantID != nil {
		c, err := s.Store.GetCelebrant(ctx, *d.CelebrantID)
		if err != nil {
			return d, err
		}
		if c == nil || !c.Active {
			return d, fmt.Errorf("%w: unknown celebrant %d", ErrInvalidDraft, *d.CelebrantID)
		}
	}
	return d, nil
}

func (s *Scheduler) plan(d Draft) (plan, error) {
	if d.Recurrence != nil {
		dates, err := s.Expander.Expand(*d.Recurrence)
		if err != nil {
			return plan{}, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
		}
		return plan{count: len(dates), fixed: dates}, nil
	}
	p := plan{count: d.OccurrenceCount}
	switch d.IntentionType {
	case models.IntentionTypeNovena, models.IntentionTypeThirty:
		p.series = true
	default:
		if d.DateType == models.DateTypeImperative {
			p.fixed = make([]time.Time, p.count)
			for i := range p.fixed {
				p.fixed[i] = *d.RequestedDate
			}
		}
	}
	return p, nil
}

func (s *Scheduler) maxOccurrences() int {
	if s.Expander.MaxOccurrences > 0 {
		return s.Expander.MaxOccurrences
	}
	return 1000
}

func (s *Scheduler) batchID() string {
	if s.NewBatchID != nil {
		return s.NewBatchID()
	}
	return newBatchID()
}

func toItem(index int, o assignment.Outcome) PreviewItem {
	return PreviewItem{
		Index:        index,
		Date:         o.Date,
		CelebrantID:  o.CelebrantID,
		Status:       o.Status,
		ErrorCode:    o.ErrorCode,
		OriginalDate: o.OriginalDate,
		ChangedDate:  o.ChangedDate,
	}
}
