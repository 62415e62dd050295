// Package recurrence expands Recurrence definitions into the ordered dates
// they denote. Sequences are lazy and restartable, and always finite: a
// no-end recurrence yields its first year only, later periods are added one
// at a time by the lifecycle sweep.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

const defaultMaxOccurrences = 1000

var (
	ErrInvalidRecurrence     = errors.New("recurrence: invalid recurrence")
	ErrInvalidRecurrenceDate = errors.New("recurrence: yearly recurrence cannot start on February 29")
	ErrTooManyOccurrences    = errors.New("recurrence: too many occurrences")
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Validate rejects malformed recurrences before any date math runs.
func Validate(r models.Recurrence) error {
	if r.StartDate.IsZero() {
		return fmt.Errorf("%w: start date required", ErrInvalidRecurrence)
	}
	hasPosition := r.Position != nil && strings.TrimSpace(*r.Position) != ""
	hasWeekday := r.Weekday != nil && strings.TrimSpace(*r.Weekday) != ""

	switch r.Type {
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
		if hasPosition || hasWeekday {
			return fmt.Errorf("%w: position and weekday are only allowed for %s", ErrInvalidRecurrence, models.RecurrenceRelativePosition)
		}
	case models.RecurrenceRelativePosition:
		if !hasPosition || !hasWeekday {
			return fmt.Errorf("%w: %s requires position and weekday", ErrInvalidRecurrence, models.RecurrenceRelativePosition)
		}
		if _, err := calendar.ParseWeekday(*r.Weekday); err != nil {
			return err
		}
		if _, err := calendar.Position(*r.Position).Ordinal(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecurrence, r.Type)
	}

	switch r.EndType {
	case models.EndTypeOccurrences:
		if r.Occurrences == nil || *r.Occurrences < 1 {
			return fmt.Errorf("%w: occurrences must be >= 1", ErrInvalidRecurrence)
		}
	case models.EndTypeDate:
		if r.EndDate == nil {
			return fmt.Errorf("%w: end date required", ErrInvalidRecurrence)
		}
		if calendar.Day(*r.EndDate).Before(calendar.Day(r.StartDate)) {
			return fmt.Errorf("%w: end date before start date", ErrInvalidRecurrence)
		}
	case models.EndTypeNoEnd:
		if !Continuable(r) {
			return fmt.Errorf("%w: %s cannot run without end", ErrInvalidRecurrence, r.Type)
		}
	default:
		return fmt.Errorf("%w: unknown end type %q", ErrInvalidRecurrence, r.EndType)
	}

	if r.Type == models.RecurrenceYearly && calendar.IsLeapDay(r.StartDate) {
		return ErrInvalidRecurrenceDate
	}
	return nil
}

// Continuable reports whether the lifecycle sweep extends this type period by period.
func Continuable(r models.Recurrence) bool {
	switch r.Type {
	case models.RecurrenceYearly, models.RecurrenceMonthly, models.RecurrenceRelativePosition:
		return true
	}
	return false
}

// IsNoEnd reports whether r is a continued, open-ended recurrence.
func IsNoEnd(r *models.Recurrence) bool {
	return r != nil && r.EndType == models.EndTypeNoEnd && Continuable(*r)
}

// Sequence yields the dates of one recurrence in increasing order.
type Sequence struct {
	start time.Time
	unit  calendar.Unit
	limit int
	until *time.Time
	rule  *rrule.RRule

	next    rrule.Next
	emitted int
}

// Iterate validates r and returns a fresh sequence over its dates.
func Iterate(r models.Recurrence) (*Sequence, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}
	s := &Sequence{start: calendar.Day(r.StartDate)}

	switch r.EndType {
	case models.EndTypeOccurrences:
		s.limit = *r.Occurrences
	case models.EndTypeDate:
		until := calendar.Day(*r.EndDate)
		s.until = &until
	case models.EndTypeNoEnd:
		s.limit = firstPeriodCount(r.Type)
	}

	switch r.Type {
	case models.RecurrenceMonthly:
		s.unit = calendar.UnitMonth
	case models.RecurrenceYearly:
		s.unit = calendar.UnitYear
	default:
		rule, err := newRule(r, s.start, s.limit, s.until)
		if err != nil {
			return nil, err
		}
		s.rule = rule
	}
	s.Reset()
	return s, nil
}

// firstPeriodCount is how many dates a no-end recurrence creates up front.
func firstPeriodCount(kind string) int {
	if kind == models.RecurrenceYearly {
		return 1
	}
	return 12
}

func newRule(r models.Recurrence, start time.Time, limit int, until *time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart: start,
		Count:   limit,
	}
	if until != nil {
		opt.Until = *until
	}
	switch r.Type {
	case models.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case models.RecurrenceRelativePosition:
		wd, err := calendar.ParseWeekday(*r.Weekday)
		if err != nil {
			return nil, err
		}
		n, err := calendar.Position(*r.Position).Ordinal()
		if err != nil {
			return nil, err
		}
		// BYDAY=+nXX / -1XX is re-evaluated against every month's own layout.
		opt.Freq = rrule.MONTHLY
		day := rruleWeekdays[wd]
		opt.Byweekday = []rrule.Weekday{day.Nth(n)}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRecurrence, r.Type)
	}
	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecurrence, err)
	}
	return rule, nil
}

// Next returns the following date, or false once the end condition is met.
func (s *Sequence) Next() (time.Time, bool) {
	if s.limit > 0 && s.emitted >= s.limit {
		return time.Time{}, false
	}
	var d time.Time
	if s.rule != nil {
		v, ok := s.next()
		if !ok {
			return time.Time{}, false
		}
		d = calendar.Day(v)
	} else {
		d = calendar.AddPeriod(s.start, s.unit, s.emitted)
	}
	if s.until != nil && d.After(*s.until) {
		return time.Time{}, false
	}
	s.emitted++
	return d, true
}

// Reset rewinds the sequence to its first date.
func (s *Sequence) Reset() {
	s.emitted = 0
	if s.rule != nil {
		s.next = s.rule.Iterator()
	}
}

// Expander collects sequences under an occurrence cap.
type Expander struct {
	MaxOccurrences int
}

// Expand returns every date of r, failing when the cap would be exceeded.
func (e Expander) Expand(r models.Recurrence) ([]time.Time, error) {
	seq, err := Iterate(r)
	if err != nil {
		return nil, err
	}
	limit := e.MaxOccurrences
	if limit <= 0 {
		limit = defaultMaxOccurrences
	}
	out := make([]time.Time, 0)
	for {
		d, ok := seq.Next()
		if !ok {
			break
		}
		if len(out) == limit {
			return nil, fmt.Errorf("%w: more than %d", ErrTooManyOccurrences, limit)
		}
		out = append(out, d)
	}
	return out, nil
}
