package lifecycle

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/assignment"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
)

const (
	skipNoRecurrence   = "no recurrence attached"
	skipNoCurrentEvent = "no event in the current period"
	skipLeapDaySource  = "yearly source falls on february 29"
	skipBadRecurrence  = "recurrence cannot be continued"
	skipConflict       = "booking conflict, retried next run"
)

// continueAll adds the next-period event of every open-ended recurring
// intention. Each insert commits on its own so one conflict does not hold
// back the others.
func (m *Manager) continueAll(ctx context.Context, res *SweepResult) error {
	items, err := m.Store.ListNoEndIntentions(ctx)
	if err != nil {
		return err
	}
	policy := m.newPolicy()
	usage := assignment.NewBatchUsage()

	for _, it := range items {
		events, err := m.Store.ListIntentionEvents(ctx, it.ID)
		if err != nil {
			return err
		}
		ev, outcome, reason, err := nextEvent(ctx, policy, usage, it, events, res.AsOf)
		if err != nil {
			return err
		}
		if reason != "" {
			m.skip(res, it.ID, reason)
			continue
		}
		if ev == nil {
			continue
		}
		ev.BatchID = res.RunID

		err = m.Store.InTx(ctx, func(tx *gorm.DB) error {
			return m.Store.CreateEventsTx(ctx, tx, []models.Event{*ev})
		})
		if errors.Is(err, repository.ErrConflict) {
			m.skip(res, it.ID, skipConflict)
			continue
		}
		if err != nil {
			return err
		}
		usage.Record(outcome)
		res.ContinuedIntentions = append(res.ContinuedIntentions, it.ID)
		m.logger().Debug("intention continued",
			zap.Uint64("intention_id", it.ID),
			zap.String("date", calendar.DayKey(*ev.RequestedDate)),
			zap.String("status", ev.Status),
		)
	}
	return nil
}

func (m *Manager) skip(res *SweepResult, intentionID uint64, reason string) {
	res.Skipped = append(res.Skipped, Skip{IntentionID: intentionID, Reason: reason})
	m.logger().Info("continuation skipped", zap.Uint64("intention_id", intentionID), zap.String("reason", reason))
}

// nextEvent builds the event one period after the current-period event, or
// returns nil when the target period already has one. A non-empty reason
// means the intention is skipped this run.
func nextEvent(ctx context.Context, policy *assignment.Policy, usage *assignment.BatchUsage, it models.Intention, events []models.Event, asOf time.Time) (*models.Event, assignment.Outcome, string, error) {
	rec := it.Recurrence
	if rec == nil {
		return nil, assignment.Outcome{}, skipNoRecurrence, nil
	}
	from, to := period(rec.Type, asOf)
	anchor := latestBetween(events, from, to)
	if anchor == nil {
		return nil, assignment.Outcome{}, skipNoCurrentEvent, nil
	}

	target, reason := nextDate(*rec, *anchor.Date)
	if reason != "" {
		return nil, assignment.Outcome{}, reason, nil
	}
	tFrom, tTo := period(rec.Type, target)
	if hasEventBetween(events, tFrom, tTo) {
		return nil, assignment.Outcome{}, "", nil
	}

	var celebrant *uint64
	if it.CelebrantID != nil {
		celebrant = anchor.CelebrantID
		if celebrant == nil {
			celebrant = it.CelebrantID
		}
	}
	o, err := policy.Resolve(ctx, assignment.Request{DateHint: &target, DateType: models.DateTypeImperative, CelebrantID: celebrant}, usage)
	if err != nil {
		return nil, assignment.Outcome{}, "", err
	}

	ev := &models.Event{IntentionID: it.ID, Status: models.EventStatusPending, RequestedDate: &target}
	if o.Scheduled() {
		ev.Date = o.Date
		ev.CelebrantID = o.CelebrantID
		ev.Status = models.EventStatusScheduled
	}
	return ev, o, "", nil
}

// nextDate is the anchor's date one period later. Monthly and yearly steps
// are counted from the recurrence start so day-of-month clamping never drifts.
func nextDate(rec models.Recurrence, anchor time.Time) (time.Time, string) {
	start := calendar.Day(rec.StartDate)
	switch rec.Type {
	case models.RecurrenceYearly:
		if calendar.IsLeapDay(anchor) || calendar.IsLeapDay(start) {
			return time.Time{}, skipLeapDaySource
		}
		return calendar.AddPeriod(start, calendar.UnitYear, anchor.Year()-start.Year()+1), ""
	case models.RecurrenceMonthly:
		months := (anchor.Year()-start.Year())*12 + int(anchor.Month()) - int(start.Month())
		return calendar.AddPeriod(start, calendar.UnitMonth, months+12), ""
	case models.RecurrenceRelativePosition:
		if rec.Position == nil || rec.Weekday == nil {
			return time.Time{}, skipBadRecurrence
		}
		d, err := calendar.NthWeekdayOfMonth(anchor.Year()+1, anchor.Month(), calendar.Position(*rec.Position), *rec.Weekday)
		if err != nil {
			return time.Time{}, skipBadRecurrence
		}
		return d, ""
	}
	return time.Time{}, skipBadRecurrence
}

// period is the year (yearly) or month (monthly, relative_position) around day.
func period(kind string, day time.Time) (time.Time, time.Time) {
	if kind == models.RecurrenceYearly {
		return calendar.YearStart(day), calendar.YearEnd(day)
	}
	return calendar.MonthStart(day), calendar.MonthEnd(day)
}

func latestBetween(events []models.Event, from, to time.Time) *models.Event {
	var out *models.Event
	for i := range events {
		ev := &events[i]
		if ev.Date == nil || ev.Status == models.EventStatusCancelled {
			continue
		}
		d := calendar.Day(*ev.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		if out == nil || d.After(calendar.Day(*out.Date)) {
			out = ev
		}
	}
	return out
}

// hasEventBetween also counts unassigned events through their requested date.
func hasEventBetween(events []models.Event, from, to time.Time) bool {
	for _, ev := range events {
		if ev.Status == models.EventStatusCancelled {
			continue
		}
		d := ev.Date
		if d == nil {
			d = ev.RequestedDate
		}
		if d == nil {
			continue
		}
		day := calendar.Day(*d)
		if !day.Before(from) && !day.After(to) {
			return true
		}
	}
	return false
}
