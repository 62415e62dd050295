package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/availability"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

type CelebrantStore interface {
	availability.Store
	ListCelebrants(ctx context.Context, activeOnly bool) ([]models.Celebrant, error)
	GetCelebrant(ctx context.Context, id uint64) (*models.Celebrant, error)
}

type CelebrantsHandler struct {
	Repo CelebrantStore
	// Today defaults the availability date; nil means the UTC calendar day.
	Today func() time.Time
}

func (h *CelebrantsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/celebrants", h.list)
	r.GET("/api/v1/celebrants/:id/availability", h.availability)
	r.GET("/api/v1/availability", h.availableOn)
}

// @Summary List celebrants
// @Tags celebrants
// @Param active query bool false "only active celebrants (default true)"
// @Success 200 {object} apiResponse
// @Router /api/v1/celebrants [get]
func (h *CelebrantsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	items, err := h.Repo.ListCelebrants(c.Request.Context(), boolQueryDefault(c, "active", true))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

// @Summary Check whether a celebrant is free on a date
// @Tags celebrants
// @Param id path int true "celebrant id"
// @Param date query string false "YYYY-MM-DD (default today)"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/celebrants/{id}/availability [get]
func (h *CelebrantsHandler) availability(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	date, ok := dateQuery(c, "date", h.today())
	if !ok {
		Error(c, http.StatusBadRequest, "invalid date", nil)
		return
	}
	ctx := c.Request.Context()
	celebrant, err := h.Repo.GetCelebrant(ctx, id)
	if err != nil {
		Fail(c, err)
		return
	}
	if celebrant == nil {
		Error(c, http.StatusNotFound, "celebrant not found", nil)
		return
	}
	free, err := availability.NewResolver(h.Repo).IsAvailable(ctx, id, date)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, map[string]any{
		"celebrant_id": id,
		"date":         calendar.DayKey(date),
		"available":    free && celebrant.Active,
	}, nil)
}

// @Summary List celebrants free on a date
// @Tags celebrants
// @Param date query string false "YYYY-MM-DD (default today)"
// @Success 200 {object} apiResponse
// @Router /api/v1/availability [get]
func (h *CelebrantsHandler) availableOn(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	date, ok := dateQuery(c, "date", h.today())
	if !ok {
		Error(c, http.StatusBadRequest, "invalid date", nil)
		return
	}
	items, err := availability.NewResolver(h.Repo).Available(c.Request.Context(), date, nil)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"date": calendar.DayKey(date), "count": len(items)})
}

func (h *CelebrantsHandler) today() time.Time {
	if h.Today != nil {
		return h.Today()
	}
	return calendar.Day(time.Now().UTC())
}
