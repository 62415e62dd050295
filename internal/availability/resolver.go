// Package availability answers whether a celebrant can be booked on a date.
//
// A Resolver is built per request (or per sweep) and caches what it reads:
// the celebrant list, unavailable days, and bookings bucketed by month. The
// cache makes repeated day-by-day probes cheap; it is not authoritative. The
// unique index on events (celebrant_id, date) is the real guard at commit time.
package availability

import (
	"context"
	"sort"
	"time"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

// Store is the read side the resolver needs.
type Store interface {
	ListActiveCelebrants(ctx context.Context) ([]models.Celebrant, error)
	ListUnavailableDays(ctx context.Context) ([]models.UnavailableDay, error)
	// ListAssignedEventsBetween returns non-cancelled events holding a
	// celebrant and a date within [from, to].
	ListAssignedEventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error)
}

// Ranker picks one celebrant among available candidates.
type Ranker interface {
	LeastBusy(ctx context.Context, candidates []models.Celebrant, at time.Time, extra map[uint64]int) (*models.Celebrant, error)
}

type Resolver struct {
	Store  Store
	Ranker Ranker

	celebrants  []models.Celebrant
	loadedCeleb bool
	unavailable map[uint64][]models.UnavailableDay
	months      map[string]map[string]map[uint64]struct{}
}

func NewResolver(store Store) *Resolver {
	return &Resolver{Store: store}
}

// IsAvailable is false when the celebrant already has an event that day or
// declared the day unavailable.
func (r *Resolver) IsAvailable(ctx context.Context, celebrantID uint64, date time.Time) (bool, error) {
	day := calendar.Day(date)
	if err := r.loadUnavailable(ctx); err != nil {
		return false, err
	}
	for _, u := range r.unavailable[celebrantID] {
		if u.Matches(day) {
			return false, nil
		}
	}
	booked, err := r.bookedOn(ctx, day)
	if err != nil {
		return false, err
	}
	_, taken := booked[celebrantID]
	return !taken, nil
}

// Celebrants returns the active celebrants ordered by id.
func (r *Resolver) Celebrants(ctx context.Context) ([]models.Celebrant, error) {
	if r.loadedCeleb {
		return r.celebrants, nil
	}
	items, err := r.Store.ListActiveCelebrants(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	r.celebrants = items
	r.loadedCeleb = true
	return items, nil
}

// Available lists the active celebrants free on date, minus exclude.
func (r *Resolver) Available(ctx context.Context, date time.Time, exclude map[uint64]struct{}) ([]models.Celebrant, error) {
	all, err := r.Celebrants(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Celebrant, 0, len(all))
	for _, c := range all {
		if _, skip := exclude[c.ID]; skip {
			continue
		}
		ok, err := r.IsAvailable(ctx, c.ID, date)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindAnyAvailable returns one free celebrant for date, or nil when nobody is
// free. With several candidates the Ranker decides; without one the lowest id wins.
func (r *Resolver) FindAnyAvailable(ctx context.Context, date time.Time, exclude map[uint64]struct{}, extra map[uint64]int) (*models.Celebrant, error) {
	candidates, err := r.Available(ctx, date, exclude)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	if len(candidates) == 1 || r.Ranker == nil {
		c := candidates[0]
		return &c, nil
	}
	return r.Ranker.LeastBusy(ctx, candidates, calendar.Day(date), extra)
}

// CountEvents counts bookings per celebrant within [from, to].
func (r *Resolver) CountEvents(ctx context.Context, celebrantIDs []uint64, from, to time.Time) (map[uint64]int, error) {
	want := make(map[uint64]struct{}, len(celebrantIDs))
	for _, id := range celebrantIDs {
		want[id] = struct{}{}
	}
	out := make(map[uint64]int, len(celebrantIDs))
	from, to = calendar.Day(from), calendar.Day(to)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		booked, err := r.bookedOn(ctx, d)
		if err != nil {
			return nil, err
		}
		for id := range booked {
			if _, ok := want[id]; ok {
				out[id]++
			}
		}
	}
	return out, nil
}

func (r *Resolver) loadUnavailable(ctx context.Context) error {
	if r.unavailable != nil {
		return nil
	}
	items, err := r.Store.ListUnavailableDays(ctx)
	if err != nil {
		return err
	}
	r.unavailable = make(map[uint64][]models.UnavailableDay)
	for _, u := range items {
		r.unavailable[u.CelebrantID] = append(r.unavailable[u.CelebrantID], u)
	}
	return nil
}

func (r *Resolver) bookedOn(ctx context.Context, day time.Time) (map[uint64]struct{}, error) {
	if r.months == nil {
		r.months = make(map[string]map[string]map[uint64]struct{})
	}
	monthKey := day.Format("2006-01")
	bucket, ok := r.months[monthKey]
	if !ok {
		events, err := r.Store.ListAssignedEventsBetween(ctx, calendar.MonthStart(day), calendar.MonthEnd(day))
		if err != nil {
			return nil, err
		}
		bucket = make(map[string]map[uint64]struct{})
		for _, ev := range events {
			if !ev.Assigned() || ev.Status == models.EventStatusCancelled {
				continue
			}
			key := calendar.DayKey(*ev.Date)
			if bucket[key] == nil {
				bucket[key] = make(map[uint64]struct{})
			}
			bucket[key][*ev.CelebrantID] = struct{}{}
		}
		r.months[monthKey] = bucket
	}
	return bucket[calendar.DayKey(day)], nil
}
