package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/cache"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/service"
)

func idPtr(v uint64) *uint64 { return &v }
func strPtr(v string) *string { return &v }

func noEnd(kind string, start time.Time) *models.Recurrence {
	return &models.Recurrence{Type: kind, StartDate: start, EndType: models.EndTypeNoEnd}
}

func newManager(store *memStore) *Manager {
	return &Manager{Store: store, Locker: cache.NewMemoryStore()}
}

func TestSweep_CompletesPastEventsAndIntentions(t *testing.T) {
	store := newMemStore(1, 2)
	store.addIntention(&models.Intention{ID: 1})
	store.addEvent(1, calendar.Date(2025, time.October, 30), 1, models.EventStatusScheduled)
	store.addEvent(1, calendar.Date(2025, time.November, 1), 1, models.EventStatusScheduled)
	store.addIntention(&models.Intention{ID: 2})
	store.addEvent(2, calendar.Date(2025, time.October, 31), 2, models.EventStatusScheduled)
	store.addEvent(2, calendar.Date(2025, time.November, 5), 2, models.EventStatusScheduled)

	res, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.November, 1))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.CompletedEvents) != 3 {
		t.Fatalf("completed events=%v want 3", res.CompletedEvents)
	}
	for _, ev := range store.events {
		if !ev.Date.After(calendar.Date(2025, time.November, 1)) && ev.Status != models.EventStatusCompleted {
			t.Fatalf("event %d on %s still %s", ev.ID, calendar.DayKey(*ev.Date), ev.Status)
		}
	}
	if len(res.CompletedIntentions) != 1 || res.CompletedIntentions[0] != 1 {
		t.Fatalf("completed intentions=%v want [1]", res.CompletedIntentions)
	}
	if got := store.intention(1).Status; got != models.IntentionStatusCompleted {
		t.Fatalf("intention 1 status=%s", got)
	}
	if got := store.intention(2).Status; got != models.IntentionStatusInProgress {
		t.Fatalf("intention 2 status=%s", got)
	}
	if len(store.runs) != 1 || store.runs[0].CompletedEvents != 3 || store.runs[0].Error != "" {
		t.Fatalf("runs=%+v", store.runs)
	}
}

func TestSweep_SecondRunIsNoop(t *testing.T) {
	store := newMemStore(1)
	store.addIntention(&models.Intention{ID: 1})
	store.addEvent(1, calendar.Date(2025, time.October, 30), 1, models.EventStatusScheduled)
	store.addIntention(&models.Intention{ID: 2, CelebrantID: idPtr(1), Recurrence: noEnd(models.RecurrenceYearly, calendar.Date(2025, time.November, 2))})
	store.addEvent(2, calendar.Date(2025, time.November, 2), 1, models.EventStatusScheduled)

	m := newManager(store)
	asOf := calendar.Date(2025, time.November, 3)
	first, err := m.Sweep(context.Background(), asOf)
	if err != nil {
		t.Fatalf("first err=%v", err)
	}
	if len(first.CompletedEvents) != 2 || len(first.ContinuedIntentions) != 1 {
		t.Fatalf("first=%+v", first)
	}
	eventCount := len(store.events)

	second, err := m.Sweep(context.Background(), asOf)
	if err != nil {
		t.Fatalf("second err=%v", err)
	}
	if len(second.CompletedEvents) != 0 || len(second.CompletedIntentions) != 0 || len(second.ContinuedIntentions) != 0 {
		t.Fatalf("second run made transitions: %+v", second)
	}
	if len(store.events) != eventCount {
		t.Fatalf("events=%d want=%d", len(store.events), eventCount)
	}
}

func TestSweep_NoEndIntentionNeverCompletes(t *testing.T) {
	store := newMemStore(1)
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(1), Recurrence: noEnd(models.RecurrenceYearly, calendar.Date(2025, time.November, 2))})
	store.addEvent(1, calendar.Date(2025, time.November, 2), 1, models.EventStatusScheduled)

	res, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.November, 2))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.CompletedIntentions) != 0 {
		t.Fatalf("completed intentions=%v", res.CompletedIntentions)
	}
	if got := store.intention(1).Status; got != models.IntentionStatusInProgress {
		t.Fatalf("status=%s want in_progress", got)
	}
}

func TestSweep_YearlyContinuationReusesCelebrant(t *testing.T) {
	store := newMemStore(1, 2)
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(2), Recurrence: noEnd(models.RecurrenceYearly, calendar.Date(2025, time.November, 2))})
	store.addEvent(1, calendar.Date(2025, time.November, 2), 2, models.EventStatusScheduled)

	res, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.November, 5))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.ContinuedIntentions) != 1 {
		t.Fatalf("continued=%v", res.ContinuedIntentions)
	}
	events := store.eventsOf(1)
	next := events[len(events)-1]
	if next.Status != models.EventStatusScheduled || calendar.DayKey(*next.Date) != "2026-11-02" || *next.CelebrantID != 2 {
		t.Fatalf("next=%+v", next)
	}
	if next.BatchID != res.RunID {
		t.Fatalf("batch=%s want=%s", next.BatchID, res.RunID)
	}
}

func TestSweep_ReusedCelebrantUnavailableLeavesPendingEvent(t *testing.T) {
	store := newMemStore(1, 2)
	store.unavailable = []models.UnavailableDay{{CelebrantID: 1, Date: calendar.Date(2026, time.November, 2)}}
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(1), Recurrence: noEnd(models.RecurrenceYearly, calendar.Date(2025, time.November, 2))})
	store.addEvent(1, calendar.Date(2025, time.November, 2), 1, models.EventStatusScheduled)

	if _, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.November, 5)); err != nil {
		t.Fatalf("err=%v", err)
	}
	events := store.eventsOf(1)
	next := events[len(events)-1]
	if next.Status != models.EventStatusPending || next.Date != nil || next.CelebrantID != nil {
		t.Fatalf("next=%+v want unassigned pending", next)
	}
	if next.RequestedDate == nil || calendar.DayKey(*next.RequestedDate) != "2026-11-02" {
		t.Fatalf("requested=%v", next.RequestedDate)
	}
}

func TestSweep_IndifferentContinuationUsesBalancer(t *testing.T) {
	store := newMemStore(1, 2)
	store.addIntention(&models.Intention{ID: 1, Recurrence: noEnd(models.RecurrenceYearly, calendar.Date(2025, time.November, 2))})
	store.addEvent(1, calendar.Date(2025, time.November, 2), 1, models.EventStatusScheduled)
	store.addIntention(&models.Intention{ID: 2})
	store.addEvent(2, calendar.Date(2026, time.October, 20), 1, models.EventStatusScheduled)

	if _, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.November, 5)); err != nil {
		t.Fatalf("err=%v", err)
	}
	events := store.eventsOf(1)
	next := events[len(events)-1]
	if next.CelebrantID == nil || *next.CelebrantID != 2 {
		t.Fatalf("next=%+v want celebrant 2", next)
	}
}

func TestSweep_MonthlyContinuationDoesNotDrift(t *testing.T) {
	store := newMemStore(1)
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(1), Recurrence: noEnd(models.RecurrenceMonthly, calendar.Date(2023, time.January, 31))})
	store.addEvent(1, calendar.Date(2023, time.February, 28), 1, models.EventStatusScheduled)

	if _, err := newManager(store).Sweep(context.Background(), calendar.Date(2023, time.February, 28)); err != nil {
		t.Fatalf("err=%v", err)
	}
	events := store.eventsOf(1)
	next := events[len(events)-1]
	if calendar.DayKey(*next.Date) != "2024-02-29" {
		t.Fatalf("next=%s want=2024-02-29", calendar.DayKey(*next.Date))
	}
}

func TestSweep_RelativePositionRecomputesWeekday(t *testing.T) {
	store := newMemStore(1)
	rec := noEnd(models.RecurrenceRelativePosition, calendar.Date(2025, time.November, 1))
	rec.Position, rec.Weekday = strPtr("last"), strPtr("friday")
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(1), Recurrence: rec})
	store.addEvent(1, calendar.Date(2025, time.November, 28), 1, models.EventStatusScheduled)

	if _, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.November, 10)); err != nil {
		t.Fatalf("err=%v", err)
	}
	events := store.eventsOf(1)
	next := events[len(events)-1]
	if calendar.DayKey(*next.Date) != "2026-11-27" || next.Date.Weekday() != time.Friday {
		t.Fatalf("next=%s", calendar.DayKey(*next.Date))
	}
}

func TestSweep_SkipsWithoutCurrentPeriodEvent(t *testing.T) {
	store := newMemStore(1)
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(1), Recurrence: noEnd(models.RecurrenceMonthly, calendar.Date(2025, time.November, 2))})
	store.addEvent(1, calendar.Date(2025, time.November, 2), 1, models.EventStatusScheduled)

	res, err := newManager(store).Sweep(context.Background(), calendar.Date(2025, time.December, 10))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.ContinuedIntentions) != 0 || len(res.Skipped) != 1 || res.Skipped[0].Reason != skipNoCurrentEvent {
		t.Fatalf("res=%+v", res)
	}
}

func TestSweep_Switches(t *testing.T) {
	store := newMemStore(1)
	store.addIntention(&models.Intention{ID: 1, CelebrantID: idPtr(1), Recurrence: noEnd(models.RecurrenceYearly, calendar.Date(2025, time.November, 2))})
	store.addEvent(1, calendar.Date(2025, time.November, 2), 1, models.EventStatusScheduled)
	asOf := calendar.Date(2025, time.November, 3)

	m := newManager(store)
	m.Switches = switches{service.FeatureLifecycleSweep: false}
	if _, err := m.Sweep(context.Background(), asOf); !errors.Is(err, ErrSweepDisabled) {
		t.Fatalf("err=%v want ErrSweepDisabled", err)
	}

	m.Switches = switches{service.FeatureContinuation: false}
	res, err := m.Sweep(context.Background(), asOf)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(res.CompletedEvents) != 1 || len(res.ContinuedIntentions) != 0 {
		t.Fatalf("res=%+v", res)
	}
}

func TestSweep_LockHeld(t *testing.T) {
	locker := cache.NewMemoryStore()
	if _, ok, _ := locker.Acquire(context.Background(), lockKey, time.Minute); !ok {
		t.Fatalf("setup lock failed")
	}
	m := &Manager{Store: newMemStore(), Locker: locker}
	if _, err := m.Sweep(context.Background(), calendar.Date(2025, time.November, 1)); !errors.Is(err, ErrSweepInProgress) {
		t.Fatalf("err=%v want ErrSweepInProgress", err)
	}
}

func TestNextDate_RefusesLeapDaySource(t *testing.T) {
	rec := models.Recurrence{Type: models.RecurrenceYearly, StartDate: calendar.Date(2024, time.February, 29)}
	if _, reason := nextDate(rec, calendar.Date(2024, time.February, 29)); reason != skipLeapDaySource {
		t.Fatalf("reason=%q", reason)
	}
}
