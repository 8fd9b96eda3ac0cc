package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payout-service/internal/domain/payout"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans payout events out over Redis Pub/Sub.
type RedisPublisher struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, clock: time.Now}
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, channel := range ResolveChannels(env) {
		if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", channel, err))
		}
	}
	return errors.Join(errs...)
}

func (p *RedisPublisher) PublishStatusChanged(ctx context.Context, item payout.Payout, previous payout.Status) error {
	return p.publishPayout(ctx, EventTypePayoutStatusChanged, item, previous)
}

func (p *RedisPublisher) PublishCreated(ctx context.Context, item payout.Payout) error {
	return p.publishPayout(ctx, EventTypePayoutCreated, item, "")
}

func (p *RedisPublisher) PublishDeleted(ctx context.Context, item payout.Payout) error {
	return p.publishPayout(ctx, EventTypePayoutDeleted, item, item.Status)
}

func (p *RedisPublisher) publishPayout(ctx context.Context, eventType string, item payout.Payout, previous payout.Status) error {
	payload := StatusChangedPayload{
		PayoutID:       item.ID.String(),
		PreviousStatus: string(previous),
		Status:         string(item.Status),
		Amount:         item.Amount.StringFixed(payout.AmountScale),
		Currency:       string(item.Currency),
		UpdatedAt:      item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	env, err := NewEnvelope(eventType, AggregatePayout, item.ID.String(), p.clock(), payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}

// Subscribe delivers envelopes published on channels to handler until ctx is
// cancelled. Messages that are not envelopes are dropped.
func (p *RedisPublisher) Subscribe(ctx context.Context, channels []string, handler func(channel string, env Envelope)) error {
	pubsub := p.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %v: %w", channels, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			handler(msg.Channel, env)
		}
	}
}
