package app

import (
	"context"
	"fmt"

	"payout-service/config"
	"payout-service/internal/events"
	"payout-service/internal/jobs"
	"payout-service/internal/pipeline"
	"payout-service/internal/queue"
	"payout-service/internal/redis"
	"payout-service/internal/repository"
	"payout-service/internal/server"
	"payout-service/internal/webhook"
	"payout-service/pkg/database"
	"payout-service/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// App holds the dependencies shared by the api and worker binaries.
type App struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *gorm.DB
	Redis     *goredis.Client
	Repo      repository.PayoutRepository
	Broker    queue.Broker
	Tasks     *queue.Client
	Publisher *events.RedisPublisher
}

// New connects to PostgreSQL and Redis and builds the task broker.
func New(ctx context.Context, cfg *config.Config, l *logger.Logger) (*App, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.Ping(ctx, rdb); err != nil {
		l.Warnf("Redis is not reachable yet: %v", err)
	}

	var broker queue.Broker
	switch cfg.Queue.Driver {
	case config.QueueDriverMemory:
		l.Warnf("Using the in-process task queue; tasks are lost on restart")
		broker = queue.NewMemoryBroker()
	case config.QueueDriverRedis, "":
		broker = queue.NewRedisBroker(rdb)
	default:
		return nil, fmt.Errorf("unknown QUEUE_DRIVER %q", cfg.Queue.Driver)
	}

	return &App{
		Config:    cfg,
		Logger:    l,
		DB:        db,
		Redis:     rdb,
		Repo:      repository.NewPayoutRepository(db),
		Broker:    broker,
		Tasks:     queue.NewClient(broker),
		Publisher: events.NewRedisPublisher(rdb),
	}, nil
}

// PipelineConfig translates the payout settings into pipeline.Config.
func PipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	pc := pipeline.DefaultConfig()
	pc.ProcessingDelay = cfg.Payout.ProcessingDelay
	if cfg.Payout.RiskLimit != "" {
		limit, err := decimal.NewFromString(cfg.Payout.RiskLimit)
		if err != nil {
			return pc, fmt.Errorf("invalid PAYOUT_RISK_LIMIT %q: %w", cfg.Payout.RiskLimit, err)
		}
		if !limit.IsPositive() {
			return pc, fmt.Errorf("PAYOUT_RISK_LIMIT must be positive, got %s", limit)
		}
		pc.RiskLimit = limit
	}
	return pc, nil
}

// Workers is the task pool plus the stale payout sweeper.
type Workers struct {
	Pool    *queue.Pool
	Sweeper *jobs.Sweeper
}

// NewWorkers registers the pipeline stages and builds the pool and sweeper.
func (a *App) NewWorkers() (*Workers, error) {
	pc, err := PipelineConfig(a.Config)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(pc, a.Repo, a.Tasks, webhook.NewNotifier(a.Config.Payout.WebhookTimeout), a.Publisher, a.Logger)
	registry := queue.NewRegistry()
	if err := p.Register(registry); err != nil {
		return nil, err
	}

	pool := queue.NewPool(a.Broker, registry, a.Logger, queue.PoolOptions{
		Concurrency:  a.Config.Queue.Concurrency,
		PollInterval: a.Config.Queue.PollInterval,
	})
	sweeper := jobs.NewSweeper(jobs.SweeperConfig{
		Schedule:   a.Config.Sweeper.Schedule,
		StaleAfter: a.Config.Sweeper.StaleAfter,
		BatchSize:  a.Config.Sweeper.BatchSize,
	}, a.Repo, a.Tasks, a.Logger)

	return &Workers{Pool: pool, Sweeper: sweeper}, nil
}

func (w *Workers) Start(ctx context.Context) error {
	w.Pool.Start(ctx)
	if err := w.Sweeper.Start(ctx); err != nil {
		w.Pool.Stop()
		return err
	}
	return nil
}

func (w *Workers) Stop() {
	w.Sweeper.Stop()
	w.Pool.Stop()
}

// HealthChecks returns the dependency probes served on /health.
func (a *App) HealthChecks() map[string]server.HealthCheck {
	return map[string]server.HealthCheck{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, a.DB) },
		"redis":    func(ctx context.Context) error { return redis.Ping(ctx, a.Redis) },
	}
}

func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		a.Logger.Warnf("Failed to close redis client: %v", err)
	}
	if err := database.Close(a.DB); err != nil {
		a.Logger.Warnf("Failed to close database: %v", err)
	}
}
