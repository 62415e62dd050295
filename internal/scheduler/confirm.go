package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/assignment"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
)

func newBatchID() string {
	return uuid.NewString()
}

// checkPreview rejects previews whose shape does not fit this draft: item
// count and order, statuses, the requested celebrant, pinned dates and
// series continuity. Date ranges are checked by checkDates.
func checkPreview(d Draft, p plan, preview PreviewResult) error {
	if len(preview.Items) != p.count {
		return fmt.Errorf("%w: %d items, draft has %d occurrences", ErrPreviewMismatch, len(preview.Items), p.count)
	}
	booked := make(map[string]struct{}, len(preview.Items))
	var anchor *PreviewItem
	for i := range preview.Items {
		it := preview.Items[i]
		if it.Index != i {
			return fmt.Errorf("%w: item %d has index %d", ErrPreviewMismatch, i, it.Index)
		}
		switch it.Status {
		case assignment.StatusScheduled:
			if it.Date == nil || it.CelebrantID == nil {
				return fmt.Errorf("%w: scheduled item %d lacks date or celebrant", ErrPreviewMismatch, i)
			}
		case assignment.StatusPending, assignment.StatusError:
			if it.Date != nil || it.CelebrantID != nil {
				return fmt.Errorf("%w: unresolved item %d carries an assignment", ErrPreviewMismatch, i)
			}
			continue
		default:
			return fmt.Errorf("%w: item %d has status %q", ErrPreviewMismatch, i, it.Status)
		}

		day := calendar.Day(*it.Date)
		if d.CelebrantID != nil && *it.CelebrantID != *d.CelebrantID {
			return fmt.Errorf("%w: item %d is not assigned to the requested celebrant", ErrPreviewMismatch, i)
		}
		if p.fixed != nil && d.DateType != models.DateTypeDesired && !day.Equal(p.fixed[i]) {
			return fmt.Errorf("%w: item %d date %s, want %s", ErrPreviewMismatch, i, calendar.DayKey(day), calendar.DayKey(p.fixed[i]))
		}
		if p.series {
			if i == 0 {
				anchor = &preview.Items[0]
			} else if anchor == nil || !day.Equal(calendar.Day(*anchor.Date).AddDate(0, 0, i)) {
				return fmt.Errorf("%w: item %d breaks the consecutive series", ErrPreviewMismatch, i)
			}
		}
		key := fmt.Sprintf("%d/%s", *it.CelebrantID, calendar.DayKey(day))
		if _, dup := booked[key]; dup {
			return fmt.Errorf("%w: celebrant %d booked twice on %s", ErrPreviewMismatch, *it.CelebrantID, calendar.DayKey(day))
		}
		booked[key] = struct{}{}
	}
	return nil
}

// checkDates rejects scheduled items dated outside the days the policy
// searches for this draft, and indifferent picks that land on a special day.
// Series days after the first are covered by checkPreview.
func (s *Scheduler) checkDates(ctx context.Context, d Draft, p plan, preview PreviewResult) error {
	policy := s.newPolicy()
	for i, it := range preview.Items {
		if it.Status != assignment.StatusScheduled || (p.series && i > 0) {
			continue
		}
		dateType, hint := d.DateType, d.RequestedDate
		if d.Recurrence != nil {
			hint = &p.fixed[i]
			if dateType == models.DateTypeIndifferent {
				dateType = models.DateTypeImperative
			}
		}
		from, to, err := policy.Window(dateType, hint)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDraft, err)
		}
		day := calendar.Day(*it.Date)
		if day.Before(from) || day.After(to) {
			return fmt.Errorf("%w: item %d date %s outside %s..%s", ErrPreviewMismatch, i, calendar.DayKey(day), calendar.DayKey(from), calendar.DayKey(to))
		}
		if dateType == models.DateTypeIndifferent && s.Blackout != nil {
			skip, err := s.Blackout.IsBlackout(ctx, day)
			if err != nil {
				return err
			}
			if skip {
				return fmt.Errorf("%w: item %d date %s is a special day", ErrPreviewMismatch, i, calendar.DayKey(day))
			}
		}
	}
	return nil
}

func buildIntention(d Draft, preview PreviewResult) models.Intention {
	status := models.IntentionStatusScheduled
	for _, it := range preview.Items {
		if it.Status != assignment.StatusScheduled {
			status = models.IntentionStatusPending
			break
		}
	}
	item := models.Intention{
		Description:     d.Description,
		Deceased:        d.Deceased,
		OccurrenceCount: d.OccurrenceCount,
		IntentionType:   d.IntentionType,
		DateType:        d.DateType,
		RequestedDate:   d.RequestedDate,
		CelebrantID:     d.CelebrantID,
		DonorID:         d.DonorID,
		Offering:        d.Offering,
		Status:          status,
	}
	if d.Recurrence != nil {
		rec := *d.Recurrence
		rec.ID = 0
		item.Recurrence = &rec
		item.OccurrenceCount = len(preview.Items)
		if item.IntentionType == "" {
			item.IntentionType = models.IntentionTypeUnit
		}
	}
	return item
}

// buildEvents maps preview items to events. Unresolved items are kept as
// pending events without date or celebrant so nothing is dropped.
func buildEvents(preview PreviewResult, batchID string) []models.Event {
	out := make([]models.Event, 0, len(preview.Items))
	for _, it := range preview.Items {
		ev := models.Event{
			Status:        models.EventStatusPending,
			RequestedDate: dayOrNil(it.OriginalDate),
			BatchID:       batchID,
		}
		if it.Status == assignment.StatusScheduled {
			ev.Status = models.EventStatusScheduled
			ev.Date = dayOrNil(it.Date)
			id := *it.CelebrantID
			ev.CelebrantID = &id
		}
		out = append(out, ev)
	}
	return out
}

func dayOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := calendar.Day(*t)
	return &d
}

func isConflict(err error) bool {
	return errors.Is(err, repository.ErrConflict)
}
