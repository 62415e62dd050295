package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/lifecycle"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/scheduler"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/service"
)

type stubStore struct {
	celebrants []models.Celebrant
	events     []models.Event
	intentions []models.Intention
	settings   map[string]models.SystemSetting
	nextID     uint64
}

func (s *stubStore) ListActiveCelebrants(ctx context.Context) ([]models.Celebrant, error) {
	return s.celebrants, nil
}

func (s *stubStore) ListCelebrants(ctx context.Context, activeOnly bool) ([]models.Celebrant, error) {
	return s.celebrants, nil
}

func (s *stubStore) ListUnavailableDays(ctx context.Context) ([]models.UnavailableDay, error) {
	return nil, nil
}

func (s *stubStore) ListAssignedEventsBetween(ctx context.Context, from, to time.Time) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range s.events {
		if ev.Assigned() && !ev.Date.Before(from) && !ev.Date.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubStore) GetCelebrant(ctx context.Context, id uint64) (*models.Celebrant, error) {
	for _, c := range s.celebrants {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (s *stubStore) InSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubStore) CelebrantBlockedTx(ctx context.Context, tx *gorm.DB, celebrantID uint64, date time.Time) (bool, error) {
	for _, ev := range s.events {
		if ev.Assigned() && *ev.CelebrantID == celebrantID && calendar.SameDay(*ev.Date, date) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) CreateIntentionTx(ctx context.Context, tx *gorm.DB, item *models.Intention) error {
	s.nextID++
	item.ID = s.nextID
	s.intentions = append(s.intentions, *item)
	return nil
}

func (s *stubStore) CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error {
	for i := range items {
		s.nextID++
		items[i].ID = s.nextID
		s.events = append(s.events, items[i])
	}
	return nil
}

func (s *stubStore) GetIntention(ctx context.Context, id uint64) (*models.Intention, error) {
	for _, it := range s.intentions {
		if it.ID == id {
			return &it, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	item, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *stubStore) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s.settings == nil {
		s.settings = map[string]models.SystemSetting{}
	}
	s.settings[item.Key] = *item
	return nil
}

func (s *stubStore) ListSystemSettings(ctx context.Context, prefix string) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	for _, it := range s.settings {
		out = append(out, it)
	}
	return out, nil
}

func (s *stubStore) book(celebrantID uint64, date time.Time) {
	d, c := date, celebrantID
	s.nextID++
	s.events = append(s.events, models.Event{ID: s.nextID, Date: &d, CelebrantID: &c, Status: models.EventStatusScheduled})
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newRouter(store *stubStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	sched := &scheduler.Scheduler{
		Store:       store,
		HorizonDays: 30,
		Now:         func() time.Time { return time.Date(2025, time.October, 31, 9, 0, 0, 0, time.UTC) },
		NewBatchID:  func() string { return "batch-1" },
	}
	(&IntentionsHandler{Scheduler: sched, Repo: store}).Register(r)
	(&CelebrantsHandler{Repo: store}).Register(r)
	(&SettingsHandler{Settings: &service.SystemSettingsService{Repo: store}}).Register(r)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return w.Code, env
}

func imperativeDraft(date string) map[string]any {
	return map[string]any{
		"description":    "for the family",
		"intention_type": "unit",
		"date_type":      "imperative",
		"requested_date": date,
		"celebrant_id":   1,
		"offering":       "20",
	}
}

func TestIntentions_PreviewThenConfirm(t *testing.T) {
	store := &stubStore{celebrants: []models.Celebrant{{ID: 1, Active: true}}}
	r := newRouter(store)

	code, env := do(t, r, http.MethodPost, "/api/v1/schedule/preview", imperativeDraft("2025-11-01"))
	if code != http.StatusOK {
		t.Fatalf("preview code=%d msg=%s", code, env.Message)
	}
	var preview previewResponse
	if err := json.Unmarshal(env.Data, &preview); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if len(preview.Items) != 1 || preview.Items[0].Date != "2025-11-01" || preview.Scheduled != 1 {
		t.Fatalf("preview=%+v", preview)
	}

	code, env = do(t, r, http.MethodPost, "/api/v1/schedule/confirm", map[string]any{
		"draft":   imperativeDraft("2025-11-01"),
		"preview": preview.Items,
	})
	if code != http.StatusOK {
		t.Fatalf("confirm code=%d msg=%s", code, env.Message)
	}
	var confirmed confirmResponse
	if err := json.Unmarshal(env.Data, &confirmed); err != nil {
		t.Fatalf("decode confirm: %v", err)
	}
	if confirmed.BatchID != "batch-1" || len(confirmed.EventIDs) != 1 {
		t.Fatalf("confirmed=%+v", confirmed)
	}

	code, _ = do(t, r, http.MethodGet, fmt.Sprintf("/api/v1/intentions/%d", confirmed.IntentionID), nil)
	if code != http.StatusOK {
		t.Fatalf("get code=%d", code)
	}
}

func TestIntentions_ConfirmConflict(t *testing.T) {
	store := &stubStore{celebrants: []models.Celebrant{{ID: 1, Active: true}}}
	r := newRouter(store)

	_, env := do(t, r, http.MethodPost, "/api/v1/schedule/preview", imperativeDraft("2025-11-01"))
	var preview previewResponse
	_ = json.Unmarshal(env.Data, &preview)

	store.book(1, calendar.Date(2025, time.November, 1))
	code, env := do(t, r, http.MethodPost, "/api/v1/schedule/confirm", map[string]any{
		"draft":   imperativeDraft("2025-11-01"),
		"preview": preview.Items,
	})
	if code != http.StatusConflict {
		t.Fatalf("code=%d msg=%s want 409", code, env.Message)
	}
	if len(store.intentions) != 0 {
		t.Fatalf("intentions=%d want none", len(store.intentions))
	}
}

func TestIntentions_BadRequests(t *testing.T) {
	store := &stubStore{celebrants: []models.Celebrant{{ID: 1, Active: true}}}
	r := newRouter(store)

	bad := imperativeDraft("01/11/2025")
	if code, _ := do(t, r, http.MethodPost, "/api/v1/schedule/preview", bad); code != http.StatusBadRequest {
		t.Fatalf("bad date code=%d", code)
	}
	noDesc := imperativeDraft("2025-11-01")
	delete(noDesc, "description")
	if code, _ := do(t, r, http.MethodPost, "/api/v1/schedule/preview", noDesc); code != http.StatusBadRequest {
		t.Fatalf("missing description code=%d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/intentions/42", nil); code != http.StatusNotFound {
		t.Fatalf("missing intention code=%d", code)
	}
}

func TestCelebrants_Availability(t *testing.T) {
	store := &stubStore{celebrants: []models.Celebrant{{ID: 1, Active: true}, {ID: 2, Active: true}}}
	store.book(1, calendar.Date(2025, time.November, 1))
	r := newRouter(store)

	code, env := do(t, r, http.MethodGet, "/api/v1/celebrants/1/availability?date=2025-11-01", nil)
	if code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	var got struct {
		Available bool `json:"available"`
	}
	_ = json.Unmarshal(env.Data, &got)
	if got.Available {
		t.Fatalf("celebrant 1 reported free on a booked day")
	}

	code, env = do(t, r, http.MethodGet, "/api/v1/availability?date=2025-11-01", nil)
	if code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	var free []models.Celebrant
	_ = json.Unmarshal(env.Data, &free)
	if len(free) != 1 || free[0].ID != 2 {
		t.Fatalf("free=%+v want celebrant 2", free)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/availability?date=tomorrow", nil); code != http.StatusBadRequest {
		t.Fatalf("bad date code=%d", code)
	}
}

func TestSettings_Switches(t *testing.T) {
	store := &stubStore{}
	r := newRouter(store)

	if code, _ := do(t, r, http.MethodPut, "/api/v1/settings/feature.unknown", map[string]any{"enabled": false}); code != http.StatusBadRequest {
		t.Fatalf("unknown switch code=%d", code)
	}
	code, _ := do(t, r, http.MethodPut, "/api/v1/settings/continuation", map[string]any{"enabled": false})
	if code != http.StatusOK {
		t.Fatalf("put code=%d", code)
	}
	code, env := do(t, r, http.MethodGet, "/api/v1/settings/feature.continuation", nil)
	if code != http.StatusOK {
		t.Fatalf("get code=%d", code)
	}
	var sw struct {
		Enabled bool `json:"enabled"`
	}
	_ = json.Unmarshal(env.Data, &sw)
	if sw.Enabled {
		t.Fatalf("continuation still enabled")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", scheduler.ErrInvalidDraft), http.StatusBadRequest},
		{scheduler.ErrPreviewMismatch, http.StatusBadRequest},
		{fmt.Errorf("%w: %w", scheduler.ErrScheduleConflict, repository.ErrConflict), http.StatusConflict},
		{lifecycle.ErrSweepInProgress, http.StatusConflict},
		{lifecycle.ErrSweepDisabled, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Fatalf("statusOf(%v)=%d want %d", tt.err, got, tt.want)
		}
	}
}
