package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"payout-service/pkg/logger"

	"go.uber.org/zap"
)

type PoolOptions struct {
	Concurrency  int
	PollInterval time.Duration
}

// Pool runs registered task handlers on a fixed number of goroutines.
type Pool struct {
	broker       Broker
	registry     *Registry
	logger       *logger.Logger
	concurrency  int
	pollInterval time.Duration
	clock        func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewPool(broker Broker, registry *Registry, l *logger.Logger, opts PoolOptions) *Pool {
	if l == nil {
		l = logger.NewNop()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &Pool{
		broker:       broker,
		registry:     registry,
		logger:       l,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		clock:        time.Now,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Infof("Task worker pool started with %d workers (tasks: %v)", p.concurrency, p.registry.Names())
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Infof("Task worker pool stopped")
}

func (p *Pool) run(ctx context.Context, workerID int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		found, err := p.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Errorf("Worker %d failed to fetch task: %v", workerID, err)
		}
		if found && err == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.pollInterval):
		}
	}
}

// RunOnce executes at most one due task. It reports whether a task was found.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	task, err := p.broker.Pop(ctx, p.clock())
	if errors.Is(err, ErrEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	p.execute(ctx, task)
	return true, nil
}

// RunPending executes due tasks until none is left and returns how many ran.
func (p *Pool) RunPending(ctx context.Context) (int, error) {
	count := 0
	for {
		found, err := p.RunOnce(ctx)
		if err != nil {
			return count, err
		}
		if !found {
			return count, nil
		}
		count++
	}
}

func (p *Pool) execute(ctx context.Context, task Task) {
	log := p.logger.With(
		zap.String("task", task.Name),
		zap.String("task_id", task.ID),
		zap.Int("attempt", task.Attempt),
	)
	// the broker writes below must survive a shutdown that cancels ctx
	bgCtx := context.WithoutCancel(ctx)

	def, ok := p.registry.Lookup(task.Name)
	if !ok {
		log.Errorf("No handler registered for task %s", task.Name)
		p.bury(bgCtx, log, task, "unregistered task")
		return
	}

	taskCtx := context.WithValue(ctx, logger.TaskIdKey, task.ID)
	result := invoke(taskCtx, def.Handler, task)

	switch result.Outcome {
	case OutcomeSuccess:
		log.Debugf("Task %s finished", task.Name)
	case OutcomeRetry:
		if !def.Policy.Allows(task.Attempt) {
			log.Errorf("Task %s exhausted %d retries: %v", task.Name, def.Policy.MaxRetries, result.Err)
			p.bury(bgCtx, log, task, fmt.Sprintf("retries exhausted: %v", result.Err))
			return
		}
		next := task
		next.Attempt++
		delay := def.Policy.NextDelay(next.Attempt)
		if err := p.broker.Push(bgCtx, next, p.clock().Add(delay)); err != nil {
			log.Errorf("Failed to reschedule task %s: %v", task.Name, err)
			return
		}
		log.Warnf("Task %s failed, retry %d/%d in %s: %v", task.Name, next.Attempt, def.Policy.MaxRetries, delay, result.Err)
	case OutcomeFail:
		log.Errorf("Task %s failed permanently: %v", task.Name, result.Err)
		p.bury(bgCtx, log, task, fmt.Sprintf("failed: %v", result.Err))
	}
}

func (p *Pool) bury(ctx context.Context, log *logger.Logger, task Task, reason string) {
	if err := p.broker.Bury(ctx, task, reason); err != nil {
		log.Errorf("Failed to bury task %s: %v", task.Name, err)
	}
}

func invoke(ctx context.Context, handler Handler, task Task) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Retry(fmt.Errorf("panic in task %s: %v", task.Name, r))
		}
	}()
	return handler(ctx, task)
}
