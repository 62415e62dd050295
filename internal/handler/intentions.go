package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/scheduler"
)

// IntentionReader is the read side used by GET /intentions/:id.
type IntentionReader interface {
	GetIntention(ctx context.Context, id uint64) (*models.Intention, error)
}

type IntentionsHandler struct {
	Scheduler *scheduler.Scheduler
	Repo      IntentionReader
}

func (h *IntentionsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/schedule")
	g.POST("/preview", h.preview)
	g.POST("/confirm", h.confirm)
	r.GET("/api/v1/intentions/:id", h.get)
}

type recurrenceRequest struct {
	Type        string  `json:"type"`
	StartDate   string  `json:"start_date"`
	EndType     string  `json:"end_type"`
	Occurrences *int    `json:"occurrences,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
	Position    *string `json:"position,omitempty"`
	Weekday     *string `json:"weekday,omitempty"`
}

type draftRequest struct {
	Description     string             `json:"description"`
	Deceased        bool               `json:"deceased"`
	OccurrenceCount int                `json:"occurrence_count"`
	IntentionType   string             `json:"intention_type"`
	DateType        string             `json:"date_type"`
	RequestedDate   string             `json:"requested_date,omitempty"`
	CelebrantID     *uint64            `json:"celebrant_id,omitempty"`
	DonorID         *uint64            `json:"donor_id,omitempty"`
	Offering        decimal.Decimal    `json:"offering"`
	Recurrence      *recurrenceRequest `json:"recurrence,omitempty"`
}

type previewItemDTO struct {
	Index        int     `json:"index"`
	Date         string  `json:"date,omitempty"`
	CelebrantID  *uint64 `json:"celebrant_id,omitempty"`
	Status       string  `json:"status"`
	ErrorCode    string  `json:"error_code,omitempty"`
	OriginalDate string  `json:"original_date,omitempty"`
	ChangedDate  bool    `json:"changed_date"`
}

type previewResponse struct {
	Items     []previewItemDTO `json:"items"`
	Scheduled int              `json:"scheduled"`
	Pending   int              `json:"pending"`
	Errors    int              `json:"errors"`
}

type confirmRequest struct {
	Draft   draftRequest     `json:"draft"`
	Preview []previewItemDTO `json:"preview"`
}

type confirmResponse struct {
	IntentionID uint64   `json:"intention_id"`
	EventIDs    []uint64 `json:"event_ids"`
	BatchID     string   `json:"batch_id"`
}

// @Summary Preview the schedule of an intention
// @Tags schedule
// @Accept json
// @Param body body draftRequest true "intention draft"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/schedule/preview [post]
func (h *IntentionsHandler) preview(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	res, err := h.Scheduler.Preview(c.Request.Context(), draft)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, toPreviewResponse(res), nil)
}

// @Summary Confirm a previewed schedule
// @Tags schedule
// @Accept json
// @Param body body confirmRequest true "draft and the preview returned for it"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/schedule/confirm [post]
func (h *IntentionsHandler) confirm(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "scheduler unavailable", nil)
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	draft, err := req.Draft.toDraft()
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	preview, err := fromPreviewItems(req.Preview)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	res, err := h.Scheduler.Confirm(c.Request.Context(), draft, preview)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, confirmResponse{IntentionID: res.IntentionID, EventIDs: res.EventIDs, BatchID: res.BatchID}, nil)
}

// @Summary Get an intention with its events
// @Tags intentions
// @Param id path int true "intention id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/intentions/{id} [get]
func (h *IntentionsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	id := uint64Param(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Repo.GetIntention(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "intention not found", nil)
		return
	}
	Ok(c, item, nil)
}

func (r draftRequest) toDraft() (scheduler.Draft, error) {
	requested, err := parseDayPtr(r.RequestedDate)
	if err != nil {
		return scheduler.Draft{}, fmt.Errorf("requested_date: %w", err)
	}
	d := scheduler.Draft{
		Description:     r.Description,
		Deceased:        r.Deceased,
		OccurrenceCount: r.OccurrenceCount,
		IntentionType:   strings.TrimSpace(r.IntentionType),
		DateType:        strings.TrimSpace(r.DateType),
		RequestedDate:   requested,
		CelebrantID:     r.CelebrantID,
		DonorID:         r.DonorID,
		Offering:        r.Offering,
	}
	if r.Recurrence != nil {
		rec, err := r.Recurrence.toModel()
		if err != nil {
			return scheduler.Draft{}, err
		}
		d.Recurrence = rec
	}
	return d, nil
}

func (r recurrenceRequest) toModel() (*models.Recurrence, error) {
	start, err := parseDayPtr(r.StartDate)
	if err != nil {
		return nil, fmt.Errorf("recurrence.start_date: %w", err)
	}
	if start == nil {
		return nil, errors.New("recurrence.start_date is required")
	}
	end, err := parseDayPtr(r.EndDate)
	if err != nil {
		return nil, fmt.Errorf("recurrence.end_date: %w", err)
	}
	return &models.Recurrence{
		Type:        strings.TrimSpace(r.Type),
		StartDate:   *start,
		EndType:     strings.TrimSpace(r.EndType),
		Occurrences: r.Occurrences,
		EndDate:     end,
		Position:    r.Position,
		Weekday:     r.Weekday,
	}, nil
}

func toPreviewResponse(res scheduler.PreviewResult) previewResponse {
	out := previewResponse{Items: make([]previewItemDTO, 0, len(res.Items))}
	for _, it := range res.Items {
		out.Items = append(out.Items, previewItemDTO{
			Index:        it.Index,
			Date:         formatDayPtr(it.Date),
			CelebrantID:  it.CelebrantID,
			Status:       it.Status,
			ErrorCode:    it.ErrorCode,
			OriginalDate: formatDayPtr(it.OriginalDate),
			ChangedDate:  it.ChangedDate,
		})
	}
	out.Scheduled, out.Pending, out.Errors = res.Counts()
	return out
}

func fromPreviewItems(items []previewItemDTO) (scheduler.PreviewResult, error) {
	out := scheduler.PreviewResult{Items: make([]scheduler.PreviewItem, 0, len(items))}
	for i, it := range items {
		date, err := parseDayPtr(it.Date)
		if err != nil {
			return scheduler.PreviewResult{}, fmt.Errorf("preview[%d].date: %w", i, err)
		}
		original, err := parseDayPtr(it.OriginalDate)
		if err != nil {
			return scheduler.PreviewResult{}, fmt.Errorf("preview[%d].original_date: %w", i, err)
		}
		out.Items = append(out.Items, scheduler.PreviewItem{
			Index:        it.Index,
			Date:         date,
			CelebrantID:  it.CelebrantID,
			Status:       it.Status,
			ErrorCode:    it.ErrorCode,
			OriginalDate: original,
			ChangedDate:  it.ChangedDate,
		})
	}
	return out, nil
}
