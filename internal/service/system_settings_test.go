package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"gorm.io/datatypes"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

type stubSettings struct {
	items map[string]models.SystemSetting
}

func (s *stubSettings) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	it, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (s *stubSettings) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	s.items[item.Key] = *item
	return nil
}

func (s *stubSettings) ListSystemSettings(ctx context.Context, prefix string) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	for k, v := range s.items {
		if strings.HasPrefix(k, prefix) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func TestEnsureDefaultSwitchesKeepsOperatorChoice(t *testing.T) {
	repo := &stubSettings{items: map[string]models.SystemSetting{
		FeatureContinuation: {Key: FeatureContinuation, Value: datatypes.JSON("false")},
	}}
	svc := &SystemSettingsService{Repo: repo}
	ctx := context.Background()
	if err := svc.EnsureDefaultSwitches(ctx); err != nil {
		t.Fatalf("err=%v", err)
	}
	if svc.IsEnabled(ctx, FeatureContinuation, true) {
		t.Fatalf("continuation switched back on")
	}
	if !svc.IsEnabled(ctx, FeatureLifecycleSweep, false) {
		t.Fatalf("lifecycle sweep default missing")
	}
	items, _ := svc.List(ctx)
	if len(items) != len(DefaultFeatureSwitches()) {
		t.Fatalf("items=%d want=%d", len(items), len(DefaultFeatureSwitches()))
	}
}

func TestSetEnabled(t *testing.T) {
	svc := &SystemSettingsService{Repo: &stubSettings{items: map[string]models.SystemSetting{}}}
	ctx := context.Background()
	if err := svc.SetEnabled(ctx, FeatureSpecialDaySync, false); err != nil {
		t.Fatalf("err=%v", err)
	}
	if svc.IsEnabled(ctx, FeatureSpecialDaySync, true) {
		t.Fatalf("switch still on")
	}
	if err := svc.SetEnabled(ctx, "feature.unknown", true); !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("err=%v want ErrUnknownSetting", err)
	}
}

func TestIsEnabledFallback(t *testing.T) {
	var svc *SystemSettingsService
	if !svc.IsEnabled(context.Background(), FeatureLifecycleSweep, true) {
		t.Fatalf("nil service should return fallback")
	}
}
