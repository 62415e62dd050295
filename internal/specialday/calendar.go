// Package specialday provides the blackout calendar the indifferent search
// skips: computed liturgical days, stored manual rows, and ICS imports.
package specialday

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/cache"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

const (
	SourceLiturgical = "liturgical"
	defaultCacheTTL  = time.Hour
)

type Store interface {
	ListSpecialDays(ctx context.Context, from, to time.Time) ([]models.SpecialDay, error)
	UpsertSpecialDays(ctx context.Context, items []models.SpecialDay) error
}

// Day is one blackout date with the titles that put it there.
type Day struct {
	Date   string   `json:"date"`
	Titles []string `json:"titles"`
}

// Calendar merges the blackout sources per year and caches the result.
type Calendar struct {
	Store      Store
	Cache      cache.Store
	CacheTTL   time.Duration
	Liturgical bool
	Logger     *zap.Logger
}

func (c *Calendar) IsBlackout(ctx context.Context, date time.Time) (bool, error) {
	if c == nil {
		return false, nil
	}
	days, err := c.year(ctx, date.Year())
	if err != nil {
		return false, err
	}
	_, ok := days[calendar.DayKey(date)]
	return ok, nil
}

// Between lists blackout days in [from, to], ordered by date.
func (c *Calendar) Between(ctx context.Context, from, to time.Time) ([]Day, error) {
	if c == nil {
		return nil, nil
	}
	from, to = calendar.Day(from), calendar.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("specialday: range ends before it starts")
	}
	out := make([]Day, 0)
	for y := from.Year(); y <= to.Year(); y++ {
		days, err := c.year(ctx, y)
		if err != nil {
			return nil, err
		}
		for key, titles := range days {
			d, _ := calendar.ParseDay(key)
			if d.Before(from) || d.After(to) {
				continue
			}
			out = append(out, Day{Date: key, Titles: titles})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Invalidate drops cached years after an import.
func (c *Calendar) Invalidate(ctx context.Context, years ...int) {
	if c == nil || c.Cache == nil {
		return
	}
	for _, y := range years {
		if err := c.Cache.Delete(ctx, cacheKey(y)); err != nil && c.Logger != nil {
			c.Logger.Warn("special day cache delete failed", zap.Int("year", y), zap.Error(err))
		}
	}
}

func (c *Calendar) year(ctx context.Context, year int) (map[string][]string, error) {
	key := cacheKey(year)
	if c.Cache != nil {
		if raw, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
			var days map[string][]string
			if json.Unmarshal(raw, &days) == nil {
				return days, nil
			}
		} else if err != nil && c.Logger != nil {
			c.Logger.Warn("special day cache read failed", zap.Int("year", year), zap.Error(err))
		}
	}

	days := map[string][]string{}
	if c.Liturgical {
		for k, title := range calendar.BlackoutDays(year) {
			days[k] = append(days[k], title)
		}
	}
	if c.Store != nil {
		rows, err := c.Store.ListSpecialDays(ctx, calendar.Date(year, time.January, 1), calendar.Date(year, time.December, 31))
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			k := calendar.DayKey(r.Date)
			days[k] = append(days[k], r.Title)
		}
	}

	if c.Cache != nil {
		ttl := c.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		if raw, err := json.Marshal(days); err == nil {
			if err := c.Cache.Set(ctx, key, raw, ttl); err != nil && c.Logger != nil {
				c.Logger.Warn("special day cache write failed", zap.Int("year", year), zap.Error(err))
			}
		}
	}
	return days, nil
}

func cacheKey(year int) string {
	return fmt.Sprintf("special_days:%d", year)
}
