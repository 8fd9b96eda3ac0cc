package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"payout-service/internal/domain/payout"
	"payout-service/internal/pipeline"

	"github.com/google/uuid"
)

type staleStore struct {
	byStatus map[payout.Status][]payout.Payout
	cutoffs  []time.Time
	err      error
}

func (s *staleStore) ListStale(_ context.Context, status payout.Status, updatedBefore time.Time, limit int) ([]payout.Payout, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.cutoffs = append(s.cutoffs, updatedBefore)
	items := s.byStatus[status]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingScheduler) Enqueue(_ context.Context, name string, _ time.Duration, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, name+":"+args[0])
	return nil
}

func (r *recordingScheduler) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSweeper_ReenqueuesStaleStages(t *testing.T) {
	pending := payout.Payout{ID: uuid.New(), Status: payout.StatusPending}
	processing := payout.Payout{ID: uuid.New(), Status: payout.StatusProcessing}
	store := &staleStore{byStatus: map[payout.Status][]payout.Payout{
		payout.StatusPending:    {pending},
		payout.StatusProcessing: {processing},
	}}
	sched := &recordingScheduler{}

	s := NewSweeper(SweeperConfig{StaleAfter: 5 * time.Minute}, store, sched, nil)
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tasks, got %d", n)
	}
	want := []string{
		pipeline.TaskProcessPayout + ":" + pending.ID.String(),
		pipeline.TaskFinalizePayout + ":" + processing.ID.String(),
	}
	for i, w := range want {
		if sched.calls[i] != w {
			t.Fatalf("call %d: expected %s, got %s", i, w, sched.calls[i])
		}
	}
	for _, cutoff := range store.cutoffs {
		if !cutoff.Equal(now.Add(-5 * time.Minute)) {
			t.Fatalf("unexpected cutoff %s", cutoff)
		}
	}
}

func TestSweeper_PropagatesStoreErrors(t *testing.T) {
	s := NewSweeper(SweeperConfig{}, &staleStore{err: errors.New("db down")}, &recordingScheduler{}, nil)
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	s := NewSweeper(SweeperConfig{Schedule: "not a schedule"}, &staleStore{}, &recordingScheduler{}, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected invalid schedule to be rejected")
	}
	s.Stop()
}

func TestSweeper_RunsOnSchedule(t *testing.T) {
	store := &staleStore{byStatus: map[payout.Status][]payout.Payout{
		payout.StatusPending: {{ID: uuid.New(), Status: payout.StatusPending}},
	}}
	sched := &recordingScheduler{}
	s := NewSweeper(SweeperConfig{Schedule: "@every 1s"}, store, sched, nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for sched.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("sweep never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}
