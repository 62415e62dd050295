package workload

import (
	"context"
	"testing"
	"time"

	"github.com/raphael-pietrzak/mass-manager-sub000/internal/models"
)

type stubCounter struct {
	counts   map[uint64]int
	from, to time.Time
}

func (s *stubCounter) CountEvents(ctx context.Context, ids []uint64, from, to time.Time) (map[uint64]int, error) {
	s.from, s.to = from, to
	out := map[uint64]int{}
	for _, id := range ids {
		out[id] = s.counts[id]
	}
	return out, nil
}

func TestLeastBusy(t *testing.T) {
	at := time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC)
	candidates := []models.Celebrant{{ID: 4}, {ID: 2}, {ID: 7}}
	tests := []struct {
		name   string
		counts map[uint64]int
		extra  map[uint64]int
		want   uint64
	}{
		{"fewest events", map[uint64]int{4: 1, 2: 3, 7: 5}, nil, 4},
		{"tie goes to lowest id", map[uint64]int{4: 2, 2: 2, 7: 2}, nil, 2},
		{"batch counts added", map[uint64]int{4: 1, 2: 1, 7: 2}, map[uint64]int{2: 2}, 4},
	}
	for _, tt := range tests {
		b := &Balancer{Counter: &stubCounter{counts: tt.counts}}
		got, err := b.LeastBusy(context.Background(), candidates, at, tt.extra)
		if err != nil {
			t.Fatalf("%s err=%v", tt.name, err)
		}
		if got == nil || got.ID != tt.want {
			t.Fatalf("%s got=%v want=%d", tt.name, got, tt.want)
		}
	}
}

func TestLeastBusy_Window(t *testing.T) {
	at := time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC)
	counter := &stubCounter{}
	b := &Balancer{Counter: counter, WindowDays: 7}
	if _, err := b.LeastBusy(context.Background(), []models.Celebrant{{ID: 1}}, at, nil); err != nil {
		t.Fatalf("err=%v", err)
	}
	if !counter.from.Equal(at.AddDate(0, 0, -7)) || !counter.to.Equal(at) {
		t.Fatalf("window=[%s,%s]", counter.from, counter.to)
	}
}

func TestLeastBusy_Empty(t *testing.T) {
	got, err := (&Balancer{}).LeastBusy(context.Background(), nil, time.Now(), nil)
	if err != nil || got != nil {
		t.Fatalf("got=%v err=%v", got, err)
	}
}
