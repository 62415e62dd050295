package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/lifecycle"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/recurrence"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/scheduler"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/service"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/specialday"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail picks the status for an engine error. Anything unrecognised is a
// storage failure.
func Fail(c *gin.Context, err error) {
	Error(c, statusOf(err), err.Error(), nil)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, scheduler.ErrInvalidDraft),
		errors.Is(err, scheduler.ErrPreviewMismatch),
		errors.Is(err, recurrence.ErrInvalidRecurrence),
		errors.Is(err, recurrence.ErrInvalidRecurrenceDate),
		errors.Is(err, recurrence.ErrTooManyOccurrences),
		errors.Is(err, calendar.ErrInvalidWeekday),
		errors.Is(err, calendar.ErrInvalidPosition),
		errors.Is(err, specialday.ErrEmptyCalendar),
		errors.Is(err, service.ErrUnknownSetting):
		return http.StatusBadRequest
	case errors.Is(err, scheduler.ErrScheduleConflict),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, lifecycle.ErrSweepInProgress):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrSweepDisabled),
		errors.Is(err, specialday.ErrNoSource):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
