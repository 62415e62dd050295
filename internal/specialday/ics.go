package specialday

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

const SourceICS = "ics"

var ErrEmptyCalendar = errors.New("specialday: empty ics body")

// ParseICS turns the VEVENTs of an ICS payload into special days within
// [from, to]. Recurring entries (RRULE) are expanded over that window; a
// multi-day all-day event yields one row per day.
func ParseICS(body []byte, from, to time.Time) ([]models.SpecialDay, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyCalendar
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("specialday: parse ics: %w", err)
	}
	from, to = calendar.Day(from), calendar.Day(to)

	seen := map[string]struct{}{}
	out := make([]models.SpecialDay, 0)
	for _, ve := range cal.Events() {
		uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
		if uidProp == nil || strings.TrimSpace(uidProp.Value) == "" {
			continue
		}
		uid := strings.TrimSpace(uidProp.Value)
		title := uid
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && strings.TrimSpace(p.Value) != "" {
			title = strings.TrimSpace(p.Value)
		}
		start, ok := eventStart(ve)
		if !ok {
			continue
		}
		span := eventSpan(ve, start)

		starts := []time.Time{start}
		if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil && strings.TrimSpace(p.Value) != "" {
			expanded, err := expandRule(p.Value, start, from, to)
			if err != nil {
				continue
			}
			starts = expanded
		}
		for _, s := range starts {
			for i := 0; i < span; i++ {
				day := s.AddDate(0, 0, i)
				if day.Before(from) || day.After(to) {
					continue
				}
				key := uid + "|" + calendar.DayKey(day)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				out = append(out, models.SpecialDay{Date: day, Title: title, Source: SourceICS, UID: uid})
			}
		}
	}
	return out, nil
}

// eventStart reads DTSTART as a calendar date. All-day values (YYYYMMDD) are
// parsed directly; timed values go through the library's TZID handling.
func eventStart(ve *ical.VEvent) (time.Time, bool) {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return time.Time{}, false
	}
	val := strings.TrimSpace(prop.Value)
	if !strings.Contains(val, "T") {
		t, err := time.Parse("20060102", val)
		if err != nil {
			return time.Time{}, false
		}
		return calendar.Day(t), true
	}
	t, err := ve.GetStartAt()
	if err != nil {
		return time.Time{}, false
	}
	return calendar.Day(t), true
}

// eventSpan is the number of days an all-day event covers (DTEND exclusive).
func eventSpan(ve *ical.VEvent, start time.Time) int {
	prop := ve.GetProperty(ical.ComponentPropertyDtEnd)
	if prop == nil {
		return 1
	}
	val := strings.TrimSpace(prop.Value)
	if strings.Contains(val, "T") {
		return 1
	}
	end, err := time.Parse("20060102", val)
	if err != nil {
		return 1
	}
	days := int(calendar.Day(end).Sub(start).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

func expandRule(raw string, start, from, to time.Time) ([]time.Time, error) {
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0)
	for _, t := range rule.Between(from, to, true) {
		out = append(out, calendar.Day(t))
	}
	return out, nil
}
