// Package assignment resolves one occurrence request into a (date, celebrant)
// pair, a deferral, or a typed failure.
//
// The policy has six cells, chosen by date-type and whether a celebrant was
// requested:
//
//	imperative  + celebrant  the hint date, that celebrant, or no_celebrant_available
//	imperative  + any        the hint date, any free celebrant, or no_celebrant_available
//	desired     + celebrant  hint date or the next free day within the horizon, or no_availability
//	desired     + any        same forward search over all celebrants
//	indifferent + celebrant  nearest free day from tomorrow, special days skipped, or no_availability
//	indifferent + any        same, least busy celebrant per day; pending when the horizon is full
package assignment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

const (
	StatusScheduled = "scheduled"
	StatusPending   = "pending"
	StatusError     = "error"

	CodeNoCelebrantAvailable = "no_celebrant_available"
	CodeNoAvailability       = "no_availability"

	defaultHorizonDays = 30
)

var (
	ErrDateRequired    = errors.New("assignment: date hint required")
	ErrUnknownDateType = errors.New("assignment: unknown date type")
)

// Availability is the read model the policy queries.
type Availability interface {
	IsAvailable(ctx context.Context, celebrantID uint64, date time.Time) (bool, error)
	FindAnyAvailable(ctx context.Context, date time.Time, exclude map[uint64]struct{}, extra map[uint64]int) (*models.Celebrant, error)
}

// Blackout reports special days the indifferent search must not pick.
type Blackout interface {
	IsBlackout(ctx context.Context, date time.Time) (bool, error)
}

type Request struct {
	DateHint    *time.Time
	DateType    string
	CelebrantID *uint64
}

// Outcome is the resolution of one Request. Date and CelebrantID are set only
// when Status is scheduled.
type Outcome struct {
	Date         *time.Time
	CelebrantID  *uint64
	Status       string
	ErrorCode    string
	OriginalDate *time.Time
	ChangedDate  bool
}

func (o Outcome) Scheduled() bool {
	return o.Status == StatusScheduled && o.Date != nil && o.CelebrantID != nil
}

type Policy struct {
	Availability Availability
	Blackout     Blackout
	HorizonDays  int
	// Now anchors "tomorrow" for the indifferent cells.
	Now      func() time.Time
	Location *time.Location
}

// Resolve never mutates usage; the caller records the outcome once it keeps it.
func (p *Policy) Resolve(ctx context.Context, req Request, usage *BatchUsage) (Outcome, error) {
	if p == nil || p.Availability == nil {
		return Outcome{}, errors.New("assignment: policy not configured")
	}
	out := Outcome{}
	if req.DateHint != nil {
		hint := calendar.Day(*req.DateHint)
		req.DateHint = &hint
		if req.DateType != models.DateTypeIndifferent {
			out.OriginalDate = &hint
		}
	}

	switch req.DateType {
	case models.DateTypeImperative:
		if req.DateHint == nil {
			return Outcome{}, ErrDateRequired
		}
		id, err := p.pick(ctx, *req.DateHint, req.CelebrantID, usage)
		if err != nil {
			return Outcome{}, err
		}
		if id == nil {
			return out.fail(CodeNoCelebrantAvailable), nil
		}
		return out.assign(*req.DateHint, *id), nil

	case models.DateTypeDesired:
		if req.DateHint == nil {
			return Outcome{}, ErrDateRequired
		}
		for i := 0; i <= p.horizon(); i++ {
			day := req.DateHint.AddDate(0, 0, i)
			id, err := p.pick(ctx, day, req.CelebrantID, usage)
			if err != nil {
				return Outcome{}, err
			}
			if id != nil {
				o := out.assign(day, *id)
				o.ChangedDate = i > 0
				return o, nil
			}
		}
		return out.fail(CodeNoAvailability), nil

	case models.DateTypeIndifferent:
		start := p.tomorrow()
		for i := 0; i < p.horizon(); i++ {
			day := start.AddDate(0, 0, i)
			if p.Blackout != nil {
				skip, err := p.Blackout.IsBlackout(ctx, day)
				if err != nil {
					return Outcome{}, err
				}
				if skip {
					continue
				}
			}
			id, err := p.pick(ctx, day, req.CelebrantID, usage)
			if err != nil {
				return Outcome{}, err
			}
			if id != nil {
				return out.assign(day, *id), nil
			}
		}
		if req.CelebrantID != nil {
			return out.fail(CodeNoAvailability), nil
		}
		out.Status = StatusPending
		return out, nil
	}
	return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownDateType, req.DateType)
}

// Window returns the inclusive range of days Resolve may pick from for the
// given date type. Blackout days inside it are only excluded for indifferent
// requests.
func (p *Policy) Window(dateType string, hint *time.Time) (from, to time.Time, err error) {
	switch dateType {
	case models.DateTypeImperative, models.DateTypeDesired:
		if hint == nil {
			return time.Time{}, time.Time{}, ErrDateRequired
		}
		from = calendar.Day(*hint)
		if dateType == models.DateTypeImperative {
			return from, from, nil
		}
		return from, from.AddDate(0, 0, p.horizon()), nil
	case models.DateTypeIndifferent:
		from = p.tomorrow()
		return from, from.AddDate(0, 0, p.horizon()-1), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrUnknownDateType, dateType)
}

// pick returns the celebrant usable on day, or nil. A requested celebrant is
// checked alone; otherwise the resolver ranks every free celebrant.
func (p *Policy) pick(ctx context.Context, day time.Time, celebrantID *uint64, usage *BatchUsage) (*uint64, error) {
	if celebrantID != nil {
		if usage.Used(day, *celebrantID) {
			return nil, nil
		}
		ok, err := p.Availability.IsAvailable(ctx, *celebrantID, day)
		if err != nil || !ok {
			return nil, err
		}
		id := *celebrantID
		return &id, nil
	}
	c, err := p.Availability.FindAnyAvailable(ctx, day, usage.Excluded(day), usage.Counts())
	if err != nil || c == nil {
		return nil, err
	}
	id := c.ID
	return &id, nil
}

func (p *Policy) horizon() int {
	if p.HorizonDays > 0 {
		return p.HorizonDays
	}
	return defaultHorizonDays
}

func (p *Policy) tomorrow() time.Time {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}
	if p.Location != nil {
		now = now.In(p.Location)
	}
	return calendar.Day(now).AddDate(0, 0, 1)
}

func (o Outcome) assign(day time.Time, celebrantID uint64) Outcome {
	o.Date = &day
	o.CelebrantID = &celebrantID
	o.Status = StatusScheduled
	o.ErrorCode = ""
	return o
}

func (o Outcome) fail(code string) Outcome {
	o.Date = nil
	o.CelebrantID = nil
	o.Status = StatusError
	o.ErrorCode = code
	return o
}
