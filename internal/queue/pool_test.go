package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestPool(t *testing.T, broker *MemoryBroker, registry *Registry) (*Pool, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)}
	pool := NewPool(broker, registry, nil, PoolOptions{Concurrency: 1, PollInterval: time.Millisecond})
	pool.clock = clock.Now
	return pool, clock
}

func TestRetryPolicy_NextDelay(t *testing.T) {
	fixed := RetryPolicy{MaxRetries: 3, Delay: 5 * time.Second}
	for attempt := 1; attempt <= 3; attempt++ {
		if got := fixed.NextDelay(attempt); got != 5*time.Second {
			t.Fatalf("fixed policy attempt %d: expected 5s, got %s", attempt, got)
		}
	}

	exp := RetryPolicy{MaxRetries: 5, Delay: time.Second, Exponential: true, MaxDelay: 6 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 6 * time.Second, 6 * time.Second}
	for i, w := range want {
		if got := exp.NextDelay(i + 1); got != w {
			t.Fatalf("exponential policy attempt %d: expected %s, got %s", i+1, w, got)
		}
	}

	if !fixed.Allows(2) || fixed.Allows(3) {
		t.Fatalf("expected 3 retries to allow attempts 0..2 to be retried")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	handler := func(context.Context, Task) Result { return Done() }
	if err := registry.Register("a", handler, RetryPolicy{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("a", handler, RetryPolicy{}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := registry.Register("b", nil, RetryPolicy{}); err == nil {
		t.Fatalf("expected nil handler to be rejected")
	}
	if _, ok := registry.Lookup("missing"); ok {
		t.Fatalf("expected lookup of unknown task to fail")
	}
}

func TestClient_ClampsNegativeDelay(t *testing.T) {
	broker := NewMemoryBroker()
	client := NewClient(broker)
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	client.clock = func() time.Time { return now }

	if err := client.Enqueue(context.Background(), "a", -time.Minute, "x"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := client.Enqueue(context.Background(), "b", 2*time.Second, "y"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	scheduled := broker.Scheduled()
	if len(scheduled) != 2 {
		t.Fatalf("expected 2 scheduled tasks, got %d", len(scheduled))
	}
	if !scheduled[0].RunAt.Equal(now) {
		t.Fatalf("expected negative delay to be clamped to now, got %s", scheduled[0].RunAt)
	}
	if !scheduled[1].RunAt.Equal(now.Add(2 * time.Second)) {
		t.Fatalf("expected 2s delay, got %s", scheduled[1].RunAt)
	}
	if scheduled[0].Task.ID == "" || scheduled[0].Task.ID == scheduled[1].Task.ID {
		t.Fatalf("expected unique task ids")
	}
	if scheduled[1].Task.Arg(0) != "y" || scheduled[1].Task.Arg(1) != "" {
		t.Fatalf("unexpected args %v", scheduled[1].Task.Args)
	}
}

func TestMemoryBroker_PopsOnlyDueTasks(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)

	_ = broker.Push(ctx, Task{ID: "later", Name: "x"}, now.Add(time.Minute))
	_ = broker.Push(ctx, Task{ID: "second", Name: "x"}, now.Add(-time.Second))
	_ = broker.Push(ctx, Task{ID: "first", Name: "x"}, now.Add(-time.Minute))

	for _, want := range []string{"first", "second"} {
		task, err := broker.Pop(ctx, now)
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if task.ID != want {
			t.Fatalf("expected %s, got %s", want, task.ID)
		}
	}
	if _, err := broker.Pop(ctx, now); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty before the delayed task is due, got %v", err)
	}
	if task, err := broker.Pop(ctx, now.Add(time.Minute)); err != nil || task.ID != "later" {
		t.Fatalf("expected delayed task once due, got %v %v", task, err)
	}
}

func TestPool_RetriesUntilPolicyExhausted(t *testing.T) {
	broker := NewMemoryBroker()
	registry := NewRegistry()
	var calls int32
	_ = registry.Register("flaky", func(context.Context, Task) Result {
		atomic.AddInt32(&calls, 1)
		return Retry(errors.New("store unavailable"))
	}, RetryPolicy{MaxRetries: 3, Delay: 5 * time.Second})

	pool, clock := newTestPool(t, broker, registry)
	ctx := context.Background()
	_ = broker.Push(ctx, Task{ID: "t1", Name: "flaky"}, clock.Now())

	for i := 0; i < 4; i++ {
		ran, err := pool.RunPending(ctx)
		if err != nil {
			t.Fatalf("run pending: %v", err)
		}
		if ran != 1 {
			t.Fatalf("round %d: expected one task to run, got %d", i, ran)
		}
		if i < 3 {
			scheduled := broker.Scheduled()
			if len(scheduled) != 1 {
				t.Fatalf("round %d: expected retry to be scheduled", i)
			}
			if scheduled[0].Task.Attempt != i+1 {
				t.Fatalf("round %d: expected attempt %d, got %d", i, i+1, scheduled[0].Task.Attempt)
			}
			if !scheduled[0].RunAt.Equal(clock.Now().Add(5 * time.Second)) {
				t.Fatalf("round %d: expected fixed 5s retry delay", i)
			}
		}
		clock.Advance(5 * time.Second)
	}

	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 1 run + 3 retries, got %d calls", got)
	}
	if len(broker.Scheduled()) != 0 {
		t.Fatalf("expected no further retries")
	}
	if dead := broker.Dead(); len(dead) != 1 || dead[0].Task.ID != "t1" {
		t.Fatalf("expected exhausted task to be buried, got %v", dead)
	}
}

func TestPool_TerminalFailureAndUnknownTasksAreBuried(t *testing.T) {
	broker := NewMemoryBroker()
	registry := NewRegistry()
	_ = registry.Register("bad", func(context.Context, Task) Result {
		return Fail(errors.New("malformed payload"))
	}, RetryPolicy{MaxRetries: 3, Delay: time.Second})

	pool, clock := newTestPool(t, broker, registry)
	ctx := context.Background()
	_ = broker.Push(ctx, Task{ID: "t1", Name: "bad"}, clock.Now())
	_ = broker.Push(ctx, Task{ID: "t2", Name: "unknown"}, clock.Now())

	if ran, err := pool.RunPending(ctx); err != nil || ran != 2 {
		t.Fatalf("expected two tasks to run, got %d %v", ran, err)
	}
	if len(broker.Scheduled()) != 0 {
		t.Fatalf("expected no retries for terminal failures")
	}
	if len(broker.Dead()) != 2 {
		t.Fatalf("expected both tasks buried, got %d", len(broker.Dead()))
	}
}

func TestPool_RecoversPanicsAsRetries(t *testing.T) {
	broker := NewMemoryBroker()
	registry := NewRegistry()
	_ = registry.Register("panicky", func(context.Context, Task) Result {
		panic("boom")
	}, RetryPolicy{MaxRetries: 1, Delay: time.Second})

	pool, clock := newTestPool(t, broker, registry)
	ctx := context.Background()
	_ = broker.Push(ctx, Task{ID: "t1", Name: "panicky"}, clock.Now())

	if _, err := pool.RunPending(ctx); err != nil {
		t.Fatalf("run pending: %v", err)
	}
	if scheduled := broker.Scheduled(); len(scheduled) != 1 || scheduled[0].Task.Attempt != 1 {
		t.Fatalf("expected panic to be retried once, got %v", scheduled)
	}
}

func TestPool_StartProcessesTasksConcurrently(t *testing.T) {
	broker := NewMemoryBroker()
	registry := NewRegistry()
	done := make(chan string, 10)
	_ = registry.Register("echo", func(_ context.Context, task Task) Result {
		done <- task.Arg(0)
		return Done()
	}, RetryPolicy{})

	pool := NewPool(broker, registry, nil, PoolOptions{Concurrency: 3, PollInterval: time.Millisecond})
	client := NewClient(broker)
	ctx := context.Background()
	for _, arg := range []string{"a", "b", "c"} {
		if err := client.EnqueueNow(ctx, "echo", arg); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	pool.Start(ctx)
	defer pool.Stop()

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case arg := <-done:
			seen[arg] = true
		case <-timeout:
			t.Fatalf("timed out waiting for tasks, saw %v", seen)
		}
	}
}
