package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh(context.Context) {
	r.calls.Add(1)
}

func TestStartDisabled(t *testing.T) {
	s := New(&countingRefresher{}, 0)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if s.Jobs() != 0 {
		t.Errorf("expected no jobs, got %d", s.Jobs())
	}
}

func TestStartSchedulesRefresh(t *testing.T) {
	r := &countingRefresher{}
	s := New(r, 50*time.Millisecond)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	if s.Jobs() != 1 {
		t.Fatalf("expected 1 job, got %d", s.Jobs())
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if r.calls.Load() == 0 {
		t.Error("expected at least one refresh")
	}
}

func TestRunCallsRefresh(t *testing.T) {
	r := &countingRefresher{}
	New(r, time.Minute).run()

	if got := r.calls.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
}
