// Package lifecycle runs the periodic sweep: it completes past events,
// extends open-ended recurrences by one period, and rolls intention
// statuses forward. Every step is idempotent, so a failed or repeated run
// is simply retried on the next tick.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/assignment"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/availability"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/cache"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/repository"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/service"
	"github.com/raphael-pietrzak/mass-manager-sub000/internal/workload"
)

const (
	lockKey        = "lock:lifecycle_sweep"
	defaultLockTTL = 10 * time.Minute
)

var (
	ErrSweepInProgress = errors.New("lifecycle: sweep already running")
	ErrSweepDisabled   = errors.New("lifecycle: sweep disabled")
)

type Store interface {
	availability.Store
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	CompleteEventsDueTx(ctx context.Context, tx *gorm.DB, asOf time.Time) ([]uint64, error)
	ListNoEndIntentions(ctx context.Context) ([]models.Intention, error)
	ListIntentionEvents(ctx context.Context, intentionID uint64) ([]models.Event, error)
	CreateEventsTx(ctx context.Context, tx *gorm.DB, items []models.Event) error
	ListIntentionProgress(ctx context.Context) ([]repository.IntentionProgress, error)
	UpdateIntentionStatusTx(ctx context.Context, tx *gorm.DB, id uint64, status string) (bool, error)
	InsertSweepRun(ctx context.Context, item *models.SweepRun) error
}

// Switches reads runtime feature flags.
type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

type Skip struct {
	IntentionID uint64 `json:"intention_id"`
	Reason      string `json:"reason"`
}

type SweepResult struct {
	RunID               string    `json:"run_id"`
	AsOf                time.Time `json:"as_of"`
	CompletedEvents     []uint64  `json:"completed_events"`
	CompletedIntentions []uint64  `json:"completed_intentions"`
	ContinuedIntentions []uint64  `json:"continued_intentions"`
	Skipped             []Skip    `json:"skipped,omitempty"`
}

type Manager struct {
	Store    Store
	Locker   cache.Locker
	Switches Switches
	Logger   *zap.Logger

	LockTTL            time.Duration
	WorkloadWindowDays int
	Location           *time.Location
	Now                func() time.Time
}

// Today is the sweep date in the configured timezone.
func (m *Manager) Today() time.Time {
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}
	if m.Location != nil {
		now = now.In(m.Location)
	}
	return calendar.Day(now)
}

// RunOnce is the cron entry point; failures are logged and retried next tick.
func (m *Manager) RunOnce(ctx context.Context) {
	if m == nil {
		return
	}
	res, err := m.Sweep(ctx, m.Today())
	if err != nil {
		if errors.Is(err, ErrSweepDisabled) || errors.Is(err, ErrSweepInProgress) {
			m.logger().Info("lifecycle sweep skipped", zap.Error(err))
			return
		}
		m.logger().Warn("lifecycle sweep failed", zap.Error(err))
		return
	}
	m.logger().Info("lifecycle sweep done",
		zap.String("run_id", res.RunID),
		zap.Int("completed_events", len(res.CompletedEvents)),
		zap.Int("completed_intentions", len(res.CompletedIntentions)),
		zap.Int("continued_intentions", len(res.ContinuedIntentions)),
		zap.Int("skipped", len(res.Skipped)),
	)
}

// Sweep runs the three steps for asOf and records the run.
func (m *Manager) Sweep(ctx context.Context, asOf time.Time) (SweepResult, error) {
	if m == nil || m.Store == nil {
		return SweepResult{}, errors.New("lifecycle: not configured")
	}
	if m.Switches != nil && !m.Switches.IsEnabled(ctx, service.FeatureLifecycleSweep, true) {
		return SweepResult{}, ErrSweepDisabled
	}
	asOf = calendar.Day(asOf)

	if m.Locker != nil {
		ttl := m.LockTTL
		if ttl <= 0 {
			ttl = defaultLockTTL
		}
		token, ok, err := m.Locker.Acquire(ctx, lockKey, ttl)
		if err != nil {
			return SweepResult{}, fmt.Errorf("lifecycle: acquire lock: %w", err)
		}
		if !ok {
			return SweepResult{}, ErrSweepInProgress
		}
		defer func() {
			if err := m.Locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				m.logger().Warn("lifecycle lock release failed", zap.Error(err))
			}
		}()
	}

	started := time.Now().UTC()
	res := SweepResult{RunID: uuid.NewString(), AsOf: asOf}
	err := m.sweep(ctx, &res)
	m.record(ctx, res, started, err)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (m *Manager) sweep(ctx context.Context, res *SweepResult) error {
	err := m.Store.InTx(ctx, func(tx *gorm.DB) error {
		ids, err := m.Store.CompleteEventsDueTx(ctx, tx, res.AsOf)
		if err != nil {
			return err
		}
		res.CompletedEvents = ids
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete events: %w", err)
	}

	if m.Switches == nil || m.Switches.IsEnabled(ctx, service.FeatureContinuation, true) {
		if err := m.continueAll(ctx, res); err != nil {
			return fmt.Errorf("continuation: %w", err)
		}
	}

	if err := m.rollStatuses(ctx, res); err != nil {
		return fmt.Errorf("intention status: %w", err)
	}
	return nil
}

// rollStatuses completes intentions whose events are all completed and marks
// partly celebrated ones in progress. Open-ended intentions never complete.
func (m *Manager) rollStatuses(ctx context.Context, res *SweepResult) error {
	items, err := m.Store.ListIntentionProgress(ctx)
	if err != nil {
		return err
	}
	for _, p := range items {
		target := ""
		switch {
		case !p.NoEnd && p.Total > 0 && p.Completed == p.Total:
			target = models.IntentionStatusCompleted
		case p.Completed > 0 && p.Status != models.IntentionStatusInProgress:
			target = models.IntentionStatusInProgress
		}
		if target == "" || target == p.Status {
			continue
		}
		var changed bool
		err := m.Store.InTx(ctx, func(tx *gorm.DB) error {
			var err error
			changed, err = m.Store.UpdateIntentionStatusTx(ctx, tx, p.IntentionID, target)
			return err
		})
		if err != nil {
			return err
		}
		if changed && target == models.IntentionStatusCompleted {
			res.CompletedIntentions = append(res.CompletedIntentions, p.IntentionID)
		}
	}
	return nil
}

func (m *Manager) record(ctx context.Context, res SweepResult, started time.Time, runErr error) {
	details, _ := json.Marshal(res)
	run := &models.SweepRun{
		RunID:               res.RunID,
		AsOf:                res.AsOf,
		CompletedEvents:     len(res.CompletedEvents),
		CompletedIntentions: len(res.CompletedIntentions),
		ContinuedIntentions: len(res.ContinuedIntentions),
		SkippedIntentions:   len(res.Skipped),
		Details:             datatypes.JSON(details),
		StartedAt:           started,
		FinishedAt:          time.Now().UTC(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := m.Store.InsertSweepRun(context.WithoutCancel(ctx), run); err != nil {
		m.logger().Warn("sweep run not recorded", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (m *Manager) newPolicy() *assignment.Policy {
	res := availability.NewResolver(m.Store)
	res.Ranker = &workload.Balancer{Counter: res, WindowDays: m.WorkloadWindowDays}
	return &assignment.Policy{Availability: res}
}

func (m *Manager) logger() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}
