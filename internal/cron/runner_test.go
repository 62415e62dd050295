package cronrunner

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestAdd_RejectsFiveFieldSpec(t *testing.T) {
	r := New(zap.NewNop(), context.Background())
	if _, err := r.Add("sweep", "15 0 * * *", func(context.Context) {}); err == nil {
		t.Fatalf("expected error for a spec without seconds")
	}
	if _, err := r.Add("sweep", "0 15 0 * * *", func(context.Context) {}); err != nil {
		t.Fatalf("err=%v", err)
	}
}

func TestStartStop(t *testing.T) {
	r := New(nil, context.Background())
	r.Start()
	r.Stop()
}
