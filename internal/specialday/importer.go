package specialday

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/service"
)

const maxICSBytes = 4 << 20

var ErrNoSource = errors.New("specialday: no ics url configured")

type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// Importer loads ICS calendars into special_days, from an upload or from the
// configured URL on a schedule.
type Importer struct {
	Store    Store
	Calendar *Calendar
	Switches Switches
	Logger   *zap.Logger

	URL          string
	FetchTimeout time.Duration
	// YearsAhead bounds recurring ICS entries; the window starts on January 1
	// of the current year.
	YearsAhead int
	HTTPClient *http.Client
	Now        func() time.Time
}

// Import stores the special days of one ICS payload and returns how many rows
// were written. Re-importing the same calendar is idempotent.
func (i *Importer) Import(ctx context.Context, body []byte) (int, error) {
	if i == nil || i.Store == nil {
		return 0, errors.New("specialday: importer not configured")
	}
	from, to := i.window()
	items, err := ParseICS(body, from, to)
	if err != nil {
		return 0, err
	}
	if err := i.Store.UpsertSpecialDays(ctx, items); err != nil {
		return 0, err
	}
	i.invalidate(ctx, items)
	return len(items), nil
}

// Sync fetches the configured URL and imports it.
func (i *Importer) Sync(ctx context.Context) (int, error) {
	if i == nil || strings.TrimSpace(i.URL) == "" {
		return 0, ErrNoSource
	}
	timeout := i.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.URL, nil)
	if err != nil {
		return 0, err
	}
	client := i.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("specialday: fetch ics: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("specialday: fetch ics: status %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxICSBytes)); err != nil {
		return 0, fmt.Errorf("specialday: read ics: %w", err)
	}
	return i.Import(ctx, buf.Bytes())
}

// RunOnce is the cron entry point.
func (i *Importer) RunOnce(ctx context.Context) {
	if i == nil || strings.TrimSpace(i.URL) == "" {
		return
	}
	if i.Switches != nil && !i.Switches.IsEnabled(ctx, service.FeatureSpecialDaySync, true) {
		return
	}
	n, err := i.Sync(ctx)
	if err != nil {
		i.logger().Warn("special day sync failed", zap.Error(err))
		return
	}
	i.logger().Info("special day sync done", zap.Int("rows", n))
}

func (i *Importer) window() (time.Time, time.Time) {
	now := time.Now()
	if i.Now != nil {
		now = i.Now()
	}
	years := i.YearsAhead
	if years <= 0 {
		years = 2
	}
	from := calendar.YearStart(now)
	return from, calendar.YearEnd(from.AddDate(years, 0, 0))
}

func (i *Importer) invalidate(ctx context.Context, items []models.SpecialDay) {
	if i.Calendar == nil {
		return
	}
	years := map[int]struct{}{}
	list := make([]int, 0)
	for _, it := range items {
		if _, ok := years[it.Date.Year()]; ok {
			continue
		}
		years[it.Date.Year()] = struct{}{}
		list = append(list, it.Date.Year())
	}
	i.Calendar.Invalidate(ctx, list...)
}

func (i *Importer) logger() *zap.Logger {
	if i.Logger == nil {
		return zap.NewNop()
	}
	return i.Logger
}
