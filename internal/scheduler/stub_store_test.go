package scheduler

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

type memStore struct {
	celebrants  []models.Celebrant
	unavailable []models.UnavailableDay
	events      []models.Event
	intentions  []models.Intention
	nextID      uint64

	// failCreate makes CreateEventsTx return the error, as a unique index would.
	failCreate error
}

func newMemStore(celebrantIDs ...uint64) *memStore {
	s := &memStore{}
	for _, id := range celebrantIDs {
		s.celebrants = append(s.celebrants, models.Celebrant{ID: id, Name: "celebrant", Active: true})
	}
	return s
}

func (s *memStore) book(celebrantID uint64, date time.Time) {
	d := calendar.Day(date)
	c := celebrantID
	s.nextID++
	s.events = append(s.events, models.Event{ID: s.nextID, IntentionID: 999, Date: &d, CelebrantID: &c, Status: models.EventStatusScheduled})
}

func (s *memStore) ListActiveCelebrants(ctx context.Context) ([]models.Celebrant, error) {
	var out []models.Celebrant
	for _, c := range s.celebrants {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
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

func (s *memStore) GetCelebrant(ctx context.Context, id uint64) (*models.Celebrant, error) {
	for _, c := range s.celebrants {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

// InSerializableTx restores the previous state when fn fails.
func (s *memStore) InSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	events := append([]models.Event(nil), s.events...)
	intentions := append([]models.Intention(nil), s.intentions...)
	nextID := s.nextID
	if err := fn(nil); err != nil {
		s.events, s.intentions, s.nextID = events, intentions, nextID
		return err
	}
	return nil
}

func (s *memStore) CelebrantBlockedTx(ctx context.Context, tx *gorm.DB, celebrantID uint64, date time.Time) (bool, error) {
	for _, u := range s.unavailable {
		if u.CelebrantID == celebrantID && u.Matches(date) {
			return true, nil
		}
	}
	for _, ev := range s.events {
		if ev.Assigned() && ev.Status != models.EventStatusCancelled && *ev.CelebrantID == celebrantID && calendar.SameDay(*ev.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateIntentionTx(ctx context.Context, tx *gorm.DB, item *models.Intention) error {
	s.nextID++
	item.ID = s.nextID
	if item.Recurrence != nil {
		s.nextID++
		item.Recurrence.ID = s.nextID
		id := item.Recurrence.ID
		item.RecurrenceID = &id
	}
	s.intentions = append(s.intentions, *item)
	return nil
}

func (s *memStore) CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error {
	if s.failCreate != nil {
		return s.failCreate
	}
	for i := range items {
		s.nextID++
		items[i].ID = s.nextID
		s.events = append(s.events, items[i])
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
