package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payout-service/internal/domain/payout"
	"payout-service/internal/queue"
	"payout-service/internal/webhook"
	payout_errors "payout-service/pkg/errors"
	"payout-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TaskProcessPayout     = "process_payout"
	TaskFinalizePayout    = "finalize_payout"
	TaskSendPayoutWebhook = "send_payout_webhook"
)

const (
	DefaultProcessingDelay = 2 * time.Second
)

// DefaultRiskLimit is the amount from which a payout is failed automatically.
var DefaultRiskLimit = decimal.NewFromInt(1_000_000)

// Store is the part of the payout repository the pipeline needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (payout.Payout, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to payout.Status) (payout.Payout, bool, error)
}

type Scheduler interface {
	Enqueue(ctx context.Context, name string, delay time.Duration, args ...string) error
}

type Notifier interface {
	Send(ctx context.Context, p payout.Payout) error
}

// StatusPublisher is told about every status change the pipeline commits.
type StatusPublisher interface {
	PublishStatusChanged(ctx context.Context, p payout.Payout, previous payout.Status) error
}

type Config struct {
	ProcessingDelay time.Duration
	RiskLimit       decimal.Decimal

	ProcessPolicy  queue.RetryPolicy
	FinalizePolicy queue.RetryPolicy
	WebhookPolicy  queue.RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		ProcessingDelay: DefaultProcessingDelay,
		RiskLimit:       DefaultRiskLimit,
		ProcessPolicy:   queue.RetryPolicy{MaxRetries: 3, Delay: 5 * time.Second},
		FinalizePolicy:  queue.RetryPolicy{MaxRetries: 3, Delay: 5 * time.Second},
		WebhookPolicy:   queue.RetryPolicy{MaxRetries: 2, Delay: 10 * time.Second},
	}
}

// Pipeline advances payouts PENDING -> PROCESSING -> COMPLETED/FAILED and
// notifies the recipient's callback URL.
type Pipeline struct {
	cfg       Config
	store     Store
	scheduler Scheduler
	notifier  Notifier
	publisher StatusPublisher
	logger    *logger.Logger
}

func New(cfg Config, store Store, scheduler Scheduler, notifier Notifier, publisher StatusPublisher, l *logger.Logger) *Pipeline {
	if cfg.ProcessingDelay < 0 {
		cfg.ProcessingDelay = 0
	}
	if cfg.RiskLimit.IsZero() {
		cfg.RiskLimit = DefaultRiskLimit
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		publisher: publisher,
		logger:    l,
	}
}

// Register binds the three stages and their retry policies.
func (p *Pipeline) Register(registry *queue.Registry) error {
	defs := []queue.Definition{
		{Name: TaskProcessPayout, Handler: p.ProcessPayout, Policy: p.cfg.ProcessPolicy},
		{Name: TaskFinalizePayout, Handler: p.FinalizePayout, Policy: p.cfg.FinalizePolicy},
		{Name: TaskSendPayoutWebhook, Handler: p.SendPayoutWebhook, Policy: p.cfg.WebhookPolicy},
	}
	for _, def := range defs {
		if err := registry.Register(def.Name, def.Handler, def.Policy); err != nil {
			return err
		}
	}
	return nil
}

// ExceedsRiskLimit reports whether amount must be failed by the risk rule.
// The threshold itself is rejected.
func ExceedsRiskLimit(amount, limit decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(limit)
}

// ProcessPayout moves a PENDING payout to PROCESSING and schedules finalization.
func (p *Pipeline) ProcessPayout(ctx context.Context, task queue.Task) queue.Result {
	id, log, res, ok := p.begin(ctx, task)
	if !ok {
		return res
	}

	current, err := p.store.GetByID(ctx, id)
	if errors.Is(err, payout_errors.ErrNotFound) {
		log.Warnf("Payout %s not found, nothing to process", id)
		return queue.Done()
	}
	if err != nil {
		return queue.Retry(fmt.Errorf("load payout %s: %w", id, err))
	}

	switch current.Status {
	case payout.StatusPending:
		updated, changed, err := p.store.TransitionStatus(ctx, id, payout.StatusPending, payout.StatusProcessing)
		if errors.Is(err, payout_errors.ErrNotFound) {
			log.Warnf("Payout %s disappeared before processing", id)
			return queue.Done()
		}
		if err != nil {
			return queue.Retry(fmt.Errorf("mark payout %s processing: %w", id, err))
		}
		if changed {
			log.Infof("Payout %s moved to processing", id)
			p.publish(ctx, log, updated, payout.StatusPending)
		} else {
			log.Infof("Payout %s already moved to %s by another worker", id, updated.Status)
		}
	case payout.StatusProcessing:
		log.Debugf("Payout %s already processing", id)
	default:
		log.Infof("Payout %s is %s, skipping processing", id, current.Status)
		return queue.Done()
	}

	if err := p.scheduler.Enqueue(ctx, TaskFinalizePayout, p.cfg.ProcessingDelay, id.String()); err != nil {
		return queue.Retry(fmt.Errorf("schedule finalization of %s: %w", id, err))
	}
	return queue.Done()
}

// FinalizePayout applies the risk rule to a PROCESSING payout and schedules
// the webhook when a callback URL is set.
func (p *Pipeline) FinalizePayout(ctx context.Context, task queue.Task) queue.Result {
	id, log, res, ok := p.begin(ctx, task)
	if !ok {
		return res
	}

	current, err := p.store.GetByID(ctx, id)
	if errors.Is(err, payout_errors.ErrNotFound) {
		log.Warnf("Payout %s not found, nothing to finalize", id)
		return queue.Done()
	}
	if err != nil {
		return queue.Retry(fmt.Errorf("load payout %s: %w", id, err))
	}

	if current.Status != payout.StatusProcessing {
		// a retry whose transition committed before the webhook enqueue failed
		if task.Attempt > 0 && (current.Status == payout.StatusCompleted || current.Status == payout.StatusFailed) {
			return p.scheduleWebhook(ctx, log, current)
		}
		log.Infof("Payout %s is %s, skipping finalization", id, current.Status)
		return queue.Done()
	}

	target := payout.StatusCompleted
	if ExceedsRiskLimit(current.Amount, p.cfg.RiskLimit) {
		target = payout.StatusFailed
	}

	updated, changed, err := p.store.TransitionStatus(ctx, id, payout.StatusProcessing, target)
	if errors.Is(err, payout_errors.ErrNotFound) {
		log.Warnf("Payout %s disappeared before finalization", id)
		return queue.Done()
	}
	if err != nil {
		return queue.Retry(fmt.Errorf("finalize payout %s: %w", id, err))
	}
	if !changed {
		log.Infof("Payout %s moved to %s concurrently, skipping finalization", id, updated.Status)
		return queue.Done()
	}

	if target == payout.StatusFailed {
		log.Warnf("Payout %s failed risk check: amount %s >= %s", id, updated.Amount, p.cfg.RiskLimit)
	} else {
		log.Infof("Payout %s completed", id)
	}
	p.publish(ctx, log, updated, payout.StatusProcessing)

	return p.scheduleWebhook(ctx, log, updated)
}

// SendPayoutWebhook delivers the payout snapshot to its callback URL.
func (p *Pipeline) SendPayoutWebhook(ctx context.Context, task queue.Task) queue.Result {
	id, log, res, ok := p.begin(ctx, task)
	if !ok {
		return res
	}

	current, err := p.store.GetByID(ctx, id)
	if errors.Is(err, payout_errors.ErrNotFound) {
		log.Warnf("Payout %s not found, dropping webhook", id)
		return queue.Done()
	}
	if err != nil {
		return queue.Retry(fmt.Errorf("load payout %s: %w", id, err))
	}
	if !current.HasCallback() {
		return queue.Done()
	}

	err = p.notifier.Send(ctx, current)
	if err == nil {
		log.Infof("Webhook for payout %s delivered (%s)", id, current.Status)
		return queue.Done()
	}

	log.Errorf("Webhook for payout %s failed: %v", id, err)
	var delivery *webhook.DeliveryError
	if errors.As(err, &delivery) && delivery.Retryable() {
		return queue.Retry(err)
	}
	return queue.Fail(err)
}

func (p *Pipeline) begin(ctx context.Context, task queue.Task) (uuid.UUID, *logger.Logger, queue.Result, bool) {
	log := p.logger.WithContext(ctx).With(zap.String("task", task.Name), zap.String("payout_id", task.Arg(0)))
	id, err := uuid.Parse(task.Arg(0))
	if err != nil {
		return uuid.Nil, log, queue.Fail(fmt.Errorf("invalid payout id %q: %w", task.Arg(0), err)), false
	}
	return id, log, queue.Result{}, true
}

func (p *Pipeline) scheduleWebhook(ctx context.Context, log *logger.Logger, current payout.Payout) queue.Result {
	if !current.HasCallback() {
		return queue.Done()
	}
	if err := p.scheduler.Enqueue(ctx, TaskSendPayoutWebhook, 0, current.ID.String()); err != nil {
		return queue.Retry(fmt.Errorf("schedule webhook for %s: %w", current.ID, err))
	}
	log.Debugf("Webhook for payout %s scheduled", current.ID)
	return queue.Done()
}

func (p *Pipeline) publish(ctx context.Context, log *logger.Logger, current payout.Payout, previous payout.Status) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishStatusChanged(ctx, current, previous); err != nil {
		log.Warnf("Failed to publish status change for payout %s: %v", current.ID, err)
	}
}
