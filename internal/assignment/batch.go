package assignment

import (
	"time"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/calendar"
)

// BatchUsage tracks assignments a batch has produced but not persisted yet,
// so two occurrences of one batch never book the same celebrant on one day.
// A nil *BatchUsage behaves as empty.
type BatchUsage struct {
	byDay  map[string]map[uint64]struct{}
	counts map[uint64]int
}

func NewBatchUsage() *BatchUsage {
	return &BatchUsage{
		byDay:  make(map[string]map[uint64]struct{}),
		counts: make(map[uint64]int),
	}
}

// Record adds a scheduled outcome; other outcomes are ignored.
func (b *BatchUsage) Record(o Outcome) {
	if b == nil || !o.Scheduled() {
		return
	}
	key := calendar.DayKey(*o.Date)
	if b.byDay[key] == nil {
		b.byDay[key] = make(map[uint64]struct{})
	}
	b.byDay[key][*o.CelebrantID] = struct{}{}
	b.counts[*o.CelebrantID]++
}

func (b *BatchUsage) Used(date time.Time, celebrantID uint64) bool {
	if b == nil {
		return false
	}
	_, ok := b.byDay[calendar.DayKey(date)][celebrantID]
	return ok
}

// Excluded returns the celebrants already booked by the batch on date.
func (b *BatchUsage) Excluded(date time.Time) map[uint64]struct{} {
	if b == nil {
		return nil
	}
	return b.byDay[calendar.DayKey(date)]
}

// Counts is the per-celebrant number of batch assignments, fed to the balancer.
func (b *BatchUsage) Counts() map[uint64]int {
	if b == nil {
		return nil
	}
	return b.counts
}
