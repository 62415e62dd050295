package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/specialday"
)

const maxUploadBytes = 4 << 20

type SpecialDaysHandler struct {
	Calendar *specialday.Calendar
	Importer *specialday.Importer
	Today    func() time.Time
}

func (h *SpecialDaysHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/special-days")
	g.GET("", h.list)
	g.POST("/import", h.importICS)
	g.POST("/sync", h.sync)
}

// @Summary List blackout days
// @Tags special-days
// @Param from query string false "YYYY-MM-DD (default today)"
// @Param to query string false "YYYY-MM-DD (default from + 1 year)"
// @Success 200 {object} apiResponse
// @Router /api/v1/special-days [get]
func (h *SpecialDaysHandler) list(c *gin.Context) {
	if h.Calendar == nil {
		Error(c, http.StatusInternalServerError, "calendar unavailable", nil)
		return
	}
	from, ok := dateQuery(c, "from", h.today())
	if !ok {
		Error(c, http.StatusBadRequest, "invalid from", nil)
		return
	}
	to, ok := dateQuery(c, "to", from.AddDate(1, 0, 0))
	if !ok || to.Before(from) {
		Error(c, http.StatusBadRequest, "invalid to", nil)
		return
	}
	items, err := h.Calendar.Between(c.Request.Context(), from, to)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{
		"from":  calendar.DayKey(from),
		"to":    calendar.DayKey(to),
		"count": len(items),
	})
}

// @Summary Import an ICS calendar of blackout days
// @Tags special-days
// @Accept text/calendar
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/special-days/import [post]
func (h *SpecialDaysHandler) importICS(c *gin.Context) {
	if h.Importer == nil {
		Error(c, http.StatusInternalServerError, "importer unavailable", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	n, err := h.Importer.Import(c.Request.Context(), body)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, map[string]any{"imported": n}, nil)
}

// @Summary Fetch the configured ICS calendar now
// @Tags special-days
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v1/special-days/sync [post]
func (h *SpecialDaysHandler) sync(c *gin.Context) {
	if h.Importer == nil {
		Error(c, http.StatusInternalServerError, "importer unavailable", nil)
		return
	}
	n, err := h.Importer.Sync(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, map[string]any{"imported": n}, nil)
}

func (h *SpecialDaysHandler) today() time.Time {
	if h.Today != nil {
		return h.Today()
	}
	return calendar.Day(time.Now().UTC())
}
