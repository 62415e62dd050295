package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/lifecycle"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
)

type SweepRunLister interface {
	ListSweepRuns(ctx context.Context, params repository.ListSweepRunsParams) ([]models.SweepRun, error)
}

type LifecycleHandler struct {
	Manager *lifecycle.Manager
	Runs    SweepRunLister
}

func (h *LifecycleHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/lifecycle")
	g.POST("/sweep", h.sweep)
	g.GET("/runs", h.runs)
}

// @Summary Run the lifecycle sweep now
// @Tags lifecycle
// @Param as_of query string false "YYYY-MM-DD (default today in the app timezone)"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/lifecycle/sweep [post]
func (h *LifecycleHandler) sweep(c *gin.Context) {
	if h.Manager == nil {
		Error(c, http.StatusInternalServerError, "lifecycle unavailable", nil)
		return
	}
	asOf, ok := dateQuery(c, "as_of", h.Manager.Today())
	if !ok {
		Error(c, http.StatusBadRequest, "invalid as_of", nil)
		return
	}
	res, err := h.Manager.Sweep(c.Request.Context(), asOf)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary List recorded sweep runs
// @Tags lifecycle
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Param since query string false "YYYY-MM-DD or RFC3339"
// @Success 200 {object} apiResponse
// @Router /api/v1/lifecycle/runs [get]
func (h *LifecycleHandler) runs(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	params := repository.ListSweepRunsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if v := strings.TrimSpace(c.Query("since")); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			since, err = calendar.ParseDay(v)
		}
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since", nil)
			return
		}
		params.Since = &since
	}
	items, err := h.Runs.ListSweepRuns(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, len(items)))
}
