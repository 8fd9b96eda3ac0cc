package jobs

import (
	"context"
	"fmt"
	"time"

	"payout-service/internal/domain/payout"
	"payout-service/internal/pipeline"
	"payout-service/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StaleFinder lists payouts stuck in a status since before a cutoff.
type StaleFinder interface {
	ListStale(ctx context.Context, status payout.Status, updatedBefore time.Time, limit int) ([]payout.Payout, error)
}

type Scheduler interface {
	Enqueue(ctx context.Context, name string, delay time.Duration, args ...string) error
}

type SweeperConfig struct {
	Schedule   string
	StaleAfter time.Duration
	BatchSize  int
}

// Sweeper re-enqueues the pipeline stage of payouts that stopped moving,
// e.g. when the enqueue after creation was lost or a worker died mid-task.
type Sweeper struct {
	cfg       SweeperConfig
	store     StaleFinder
	scheduler Scheduler
	logger    *logger.Logger
	clock     func() time.Time
	cron      *cron.Cron
}

func NewSweeper(cfg SweeperConfig, store StaleFinder, scheduler Scheduler, l *logger.Logger) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 1m"
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if l == nil {
		l = logger.NewNop()
	}
	return &Sweeper{
		cfg:       cfg,
		store:     store,
		scheduler: scheduler,
		logger:    l,
		clock:     time.Now,
	}
}

// Start registers the sweep on a cron schedule and starts it.
func (s *Sweeper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Errorf("Stale payout sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron = c
	c.Start()
	s.logger.Infof("Stale payout sweeper scheduled (%s, stale after %s)", s.cfg.Schedule, s.cfg.StaleAfter)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Sweep runs one pass and returns how many tasks were re-enqueued.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(-s.cfg.StaleAfter)
	stages := []struct {
		status payout.Status
		task   string
	}{
		{payout.StatusPending, pipeline.TaskProcessPayout},
		{payout.StatusProcessing, pipeline.TaskFinalizePayout},
	}

	requeued := 0
	for _, stage := range stages {
		stale, err := s.store.ListStale(ctx, stage.status, cutoff, s.cfg.BatchSize)
		if err != nil {
			return requeued, fmt.Errorf("list stale %s payouts: %w", stage.status, err)
		}
		for _, p := range stale {
			if err := s.scheduler.Enqueue(ctx, stage.task, 0, p.ID.String()); err != nil {
				return requeued, fmt.Errorf("re-enqueue %s for %s: %w", stage.task, p.ID, err)
			}
			requeued++
		}
		if len(stale) > 0 {
			s.logger.Warnf("Re-enqueued %s for %d stale %s payouts", stage.task, len(stale), stage.status)
		}
	}
	return requeued, nil
}
