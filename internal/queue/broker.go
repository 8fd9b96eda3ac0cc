package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEmpty is returned by Pop when no task is due.
var ErrEmpty = errors.New("no tasks due")

// Broker stores scheduled tasks until they are due.
type Broker interface {
	Push(ctx context.Context, task Task, runAt time.Time) error
	Pop(ctx context.Context, now time.Time) (Task, error)
	// Bury keeps a task that exhausted its retries for operator inspection.
	Bury(ctx context.Context, task Task, reason string) error
}

// ScheduledTask is a task together with the time it becomes due.
type ScheduledTask struct {
	Task  Task
	RunAt time.Time
}

type DeadTask struct {
	Task   Task      `json:"task"`
	Reason string    `json:"reason"`
	DiedAt time.Time `json:"died_at"`
}

// MemoryBroker keeps tasks in process memory. It backs QUEUE_DRIVER=memory
// and the tests; scheduled tasks are lost on restart.
type MemoryBroker struct {
	mu        sync.Mutex
	scheduled []ScheduledTask
	dead      []DeadTask
	clock     func() time.Time
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{clock: time.Now}
}

func (b *MemoryBroker) Push(_ context.Context, task Task, runAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scheduled = append(b.scheduled, ScheduledTask{Task: task, RunAt: runAt})
	return nil
}

func (b *MemoryBroker) Pop(_ context.Context, now time.Time) (Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i, st := range b.scheduled {
		if st.RunAt.After(now) {
			continue
		}
		if idx == -1 || st.RunAt.Before(b.scheduled[idx].RunAt) {
			idx = i
		}
	}
	if idx == -1 {
		return Task{}, ErrEmpty
	}

	task := b.scheduled[idx].Task
	b.scheduled = append(b.scheduled[:idx], b.scheduled[idx+1:]...)
	return task, nil
}

func (b *MemoryBroker) Bury(_ context.Context, task Task, reason string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dead = append(b.dead, DeadTask{Task: task, Reason: reason, DiedAt: b.clock()})
	return nil
}

// Scheduled returns a snapshot of the tasks waiting in the broker.
func (b *MemoryBroker) Scheduled() []ScheduledTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ScheduledTask, len(b.scheduled))
	copy(out, b.scheduled)
	return out
}

func (b *MemoryBroker) Dead() []DeadTask {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]DeadTask, len(b.dead))
	copy(out, b.dead)
	return out
}

var _ Broker = (*MemoryBroker)(nil)
