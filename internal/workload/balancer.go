package workload

import (
	"context"
	"sort"
	"time"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

const defaultWindowDays = 30

// Counter reports how many events each celebrant holds within [from, to].
type Counter interface {
	CountEvents(ctx context.Context, celebrantIDs []uint64, from, to time.Time) (map[uint64]int, error)
}

// Balancer spreads assignments by picking the celebrant with the fewest
// events in the trailing window. Ties go to the lowest id.
type Balancer struct {
	Counter    Counter
	WindowDays int
}

// LeastBusy ranks candidates by events in [at-window, at] plus extra, which
// carries assignments not persisted yet (the current batch).
func (b *Balancer) LeastBusy(ctx context.Context, candidates []models.Celebrant, at time.Time, extra map[uint64]int) (*models.Celebrant, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	window := b.WindowDays
	if window <= 0 {
		window = defaultWindowDays
	}
	ids := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	counts := map[uint64]int{}
	if b.Counter != nil {
		var err error
		counts, err = b.Counter.CountEvents(ctx, ids, at.AddDate(0, 0, -window), at)
		if err != nil {
			return nil, err
		}
	}

	ranked := make([]models.Celebrant, len(candidates))
	copy(ranked, candidates)
	load := func(id uint64) int { return counts[id] + extra[id] }
	sort.SliceStable(ranked, func(i, j int) bool {
		li, lj := load(ranked[i].ID), load(ranked[j].ID)
		if li != lj {
			return li < lj
		}
		return ranked[i].ID < ranked[j].ID
	})
	best := ranked[0]
	return &best, nil
}
