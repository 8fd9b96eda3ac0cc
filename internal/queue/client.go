package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Client enqueues tasks onto a broker.
type Client struct {
	broker Broker
	clock  func() time.Time
}

func NewClient(broker Broker) *Client {
	return &Client{broker: broker, clock: time.Now}
}

// Enqueue schedules name(args...) to run after delay. Negative delays are
// treated as zero.
func (c *Client) Enqueue(ctx context.Context, name string, delay time.Duration, args ...string) error {
	if delay < 0 {
		delay = 0
	}
	now := c.clock()
	task := Task{
		ID:         uuid.NewString(),
		Name:       name,
		Args:       args,
		EnqueuedAt: now.UTC(),
	}
	if err := c.broker.Push(ctx, task, now.Add(delay)); err != nil {
		return fmt.Errorf("enqueue %s: %w", name, err)
	}
	return nil
}

// EnqueueNow schedules name(args...) to run as soon as a worker is free.
func (c *Client) EnqueueNow(ctx context.Context, name string, args ...string) error {
	return c.Enqueue(ctx, name, 0, args...)
}
