// Package calendar holds the pure date arithmetic used by the scheduling
// engine. Every function works on calendar dates: values are normalized to
// midnight UTC of the date they denote, so offsets introduced by client input
// never move a date across a day boundary.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidWeekday  = errors.New("calendar: invalid weekday")
	ErrInvalidPosition = errors.New("calendar: invalid position")
)

// Position is the ordinal of a weekday inside a month.
type Position string

const (
	PositionFirst  Position = "first"
	PositionSecond Position = "second"
	PositionThird  Position = "third"
	PositionFourth Position = "fourth"
	PositionLast   Position = "last"
)

// Unit is a period length understood by AddPeriod.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

const dayKeyLayout = "2006-01-02"

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts the seven English weekday names, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
	}
	return wd, nil
}

// Ordinal maps a Position to 1..4, or -1 for last.
func (p Position) Ordinal() (int, error) {
	switch Position(strings.ToLower(strings.TrimSpace(string(p)))) {
	case PositionFirst:
		return 1, nil
	case PositionSecond:
		return 2, nil
	case PositionThird:
		return 3, nil
	case PositionFourth:
		return 4, nil
	case PositionLast:
		return -1, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPosition, string(p))
}

// Date builds a normalized calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day drops clock and offset, keeping the date as written in t's own location.
func Day(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayKey is the YYYY-MM-DD form used for map keys and JSON.
func DayKey(t time.Time) string {
	return Day(t).Format(dayKeyLayout)
}

// ParseDay parses YYYY-MM-DD, or any RFC 3339 timestamp (its written date is kept).
func ParseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dayKeyLayout, s); err == nil {
		return Day(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid date %q", s)
	}
	return Day(t), nil
}

func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func DaysInMonth(year int, month time.Month) int {
	switch month {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	}
	return 31
}

// IsLeapDay reports whether t falls on February 29.
func IsLeapDay(t time.Time) bool {
	return t.Month() == time.February && t.Day() == 29
}

// NthWeekdayOfMonth returns the first..fourth or last given weekday of a month.
func NthWeekdayOfMonth(year int, month time.Month, position Position, weekday string) (time.Time, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return time.Time{}, err
	}
	n, err := position.Ordinal()
	if err != nil {
		return time.Time{}, err
	}
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("calendar: invalid month %d", month)
	}

	if n == -1 {
		last := Date(year, month, DaysInMonth(year, month))
		back := (int(last.Weekday()) - int(wd) + 7) % 7
		return last.AddDate(0, 0, -back), nil
	}

	first := Date(year, month, 1)
	ahead := (int(wd) - int(first.Weekday()) + 7) % 7
	day := 1 + ahead + 7*(n-1)
	if day > DaysInMonth(year, month) {
		return time.Time{}, fmt.Errorf("%w: no %s %s in %d-%02d", ErrInvalidPosition, position, weekday, year, month)
	}
	return Date(year, month, day), nil
}

// AddPeriod adds count units to a date. Month and year steps clamp the day to
// the target month's length, so Feb 29 + 1 year is Feb 28.
func AddPeriod(date time.Time, unit Unit, count int) time.Time {
	d := Day(date)
	switch unit {
	case UnitDay:
		return d.AddDate(0, 0, count)
	case UnitWeek:
		return d.AddDate(0, 0, 7*count)
	case UnitMonth:
		return addMonths(d, count)
	case UnitYear:
		return addMonths(d, 12*count)
	}
	return d
}

func addMonths(d time.Time, months int) time.Time {
	total := int(d.Month()) - 1 + months
	year := d.Year() + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	day := d.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return Date(year, month, day)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}

// MonthStart and MonthEnd bound the month containing t.
func MonthStart(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1)
}

func MonthEnd(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), DaysInMonth(t.Year(), t.Month()))
}

func YearStart(t time.Time) time.Time {
	return Date(t.Year(), time.January, 1)
}

func YearEnd(t time.Time) time.Time {
	return Date(t.Year(), time.December, 31)
}
