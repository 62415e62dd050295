package lifecycle

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/recurrence"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
)

type memStore struct {
	celebrants  []models.Celebrant
	unavailable []models.UnavailableDay
	events      []models.Event
	intentions  []*models.Intention
	runs        []models.SweepRun
	nextEventID uint64
}

func newMemStore(celebrantIDs ...uint64) *memStore {
	s := &memStore{nextEventID: 100}
	for _, id := range celebrantIDs {
		s.celebrants = append(s.celebrants, models.Celebrant{ID: id, Active: true})
	}
	return s
}

func (s *memStore) addIntention(it *models.Intention) *models.Intention {
	if it.Status == "" {
		it.Status = models.IntentionStatusScheduled
	}
	s.intentions = append(s.intentions, it)
	return it
}

func (s *memStore) addEvent(intentionID uint64, date time.Time, celebrantID uint64, status string) {
	d := calendar.Day(date)
	c := celebrantID
	s.nextEventID++
	s.events = append(s.events, models.Event{ID: s.nextEventID, IntentionID: intentionID, Date: &d, CelebrantID: &c, Status: status, RequestedDate: &d})
}

func (s *memStore) intention(id uint64) *models.Intention {
	for _, it := range s.intentions {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (s *memStore) eventsOf(intentionID uint64) []models.Event {
	var out []models.Event
	for _, ev := range s.events {
		if ev.IntentionID == intentionID {
			out = append(out, ev)
		}
	}
	return out
}

func (s *memStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *memStore) ListActiveCelebrants(ctx context.Context) ([]models.Celebrant, error) {
	return append([]models.Celebrant(nil), s.celebrants...), nil
}

func (s *memStore) ListUnavailableDays(ctx context.Context) ([]models.UnavailableDay, error) {
	return s.unavailable, nil
}

func (s *memStore) ListAssignedEventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range s.events {
		if ev.Assigned() && ev.Status != models.EventStatusCancelled && !ev.Date.Before(from) && !ev.Date.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) CompleteEventsDueTx(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]uint64, error) {
	var ids []uint64
	for i := range s.events {
		ev := &s.events[i]
		if ev.Status == models.EventStatusScheduled && ev.Date != nil && !ev.Date.After(asOf) {
			ev.Status = models.EventStatusCompleted
			ids = append(ids, ev.ID)
		}
	}
	return ids, nil
}

func (s *memStore) ListNoEndIntentions(ctx context.Context) ([]models.Intention, error) {
	var out []models.Intention
	for _, it := range s.intentions {
		if it.Status == models.IntentionStatusCancelled || it.Status == models.IntentionStatusCompleted {
			continue
		}
		if recurrence.IsNoEnd(it.Recurrence) {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (s *memStore) ListIntentionEvents(ctx context.Context, intentionID uint64) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range s.eventsOf(intentionID) {
		if ev.Status != models.EventStatusCancelled {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *memStore) CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error {
	for _, ev := range items {
		if !ev.Assigned() {
			continue
		}
		for _, existing := range s.events {
			if existing.Assigned() && existing.Status != models.EventStatusCancelled &&
				*existing.CelebrantID == *ev.CelebrantID && existing.Date.Equal(*ev.Date) {
				return repository.ErrConflict
			}
		}
	}
	for _, ev := range items {
		s.nextEventID++
		ev.ID = s.nextEventID
		s.events = append(s.events, ev)
	}
	return nil
}

func (s *memStore) ListIntentionProgress(ctx context.Context) ([]repository.IntentionProgress, error) {
	var out []repository.IntentionProgress
	for _, it := range s.intentions {
		if it.Status == models.IntentionStatusCancelled || it.Status == models.IntentionStatusCompleted {
			continue
		}
		p := repository.IntentionProgress{IntentionID: it.ID, Status: it.Status, NoEnd: recurrence.IsNoEnd(it.Recurrence)}
		for _, ev := range s.eventsOf(it.ID) {
			if ev.Status == models.EventStatusCancelled {
				continue
			}
			p.Total++
			if ev.Status == models.EventStatusCompleted {
				p.Completed++
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) UpdateIntentionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) (bool, error) {
	it := s.intention(id)
	if it == nil || it.Status == status || it.Status == models.IntentionStatusCompleted || it.Status == models.IntentionStatusCancelled {
		return false, nil
	}
	it.Status = status
	return true, nil
}

func (s *memStore) InsertSweepRun(ctx context.Context, item *models.SweepRun) error {
	s.runs = append(s.runs, *item)
	return nil
}

type switches map[string]bool

func (s switches) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	v, ok := s[key]
	if !ok {
		return fallback
	}
	return v
}
