package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultScheduledKey = "payouts:tasks:scheduled"
	defaultDeadKey      = "payouts:tasks:dead"
	defaultDeadLimit    = 1000
)

// RedisBroker schedules tasks in a sorted set scored by their due time in
// unix milliseconds. A worker owns a task once its ZREM succeeds.
type RedisBroker struct {
	client       *redis.Client
	scheduledKey string
	deadKey      string
	deadLimit    int64
	clock        func() time.Time
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{
		client:       client,
		scheduledKey: defaultScheduledKey,
		deadKey:      defaultDeadKey,
		deadLimit:    defaultDeadLimit,
		clock:        time.Now,
	}
}

func (b *RedisBroker) Push(ctx context.Context, task Task, runAt time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return b.client.ZAdd(ctx, b.scheduledKey, redis.Z{
		Score:  float64(runAt.UnixMilli()),
		Member: payload,
	}).Err()
}

func (b *RedisBroker) Pop(ctx context.Context, now time.Time) (Task, error) {
	members, err := b.client.ZRangeByScore(ctx, b.scheduledKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: 1,
	}).Result()
	if err != nil {
		return Task{}, err
	}
	if len(members) == 0 {
		return Task{}, ErrEmpty
	}

	removed, err := b.client.ZRem(ctx, b.scheduledKey, members[0]).Result()
	if err != nil {
		return Task{}, err
	}
	if removed == 0 {
		// another worker claimed it first
		return Task{}, ErrEmpty
	}

	var task Task
	if err := json.Unmarshal([]byte(members[0]), &task); err != nil {
		return Task{}, fmt.Errorf("invalid task payload in queue: %w", err)
	}
	return task, nil
}

func (b *RedisBroker) Bury(ctx context.Context, task Task, reason string) error {
	payload, err := json.Marshal(DeadTask{Task: task, Reason: reason, DiedAt: b.clock().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal dead task: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, b.deadKey, payload)
	pipe.LTrim(ctx, b.deadKey, 0, b.deadLimit-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Len returns how many tasks are scheduled, due or not.
func (b *RedisBroker) Len(ctx context.Context) (int64, error) {
	return b.client.ZCard(ctx, b.scheduledKey).Result()
}

// Dead returns up to limit of the most recently buried tasks.
func (b *RedisBroker) Dead(ctx context.Context, limit int64) ([]DeadTask, error) {
	if limit <= 0 {
		limit = b.deadLimit
	}
	raw, err := b.client.LRange(ctx, b.deadKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DeadTask, 0, len(raw))
	for _, item := range raw {
		var dead DeadTask
		if err := json.Unmarshal([]byte(item), &dead); err != nil {
			continue
		}
		out = append(out, dead)
	}
	return out, nil
}

var _ Broker = (*RedisBroker)(nil)
