package main

import (
	"context"
	"log"

	"payout-service/config"
	"payout-service/internal/app"
	"payout-service/internal/handler"
	"payout-service/internal/redis"
	"payout-service/internal/repository"
	"payout-service/internal/server"
	"payout-service/internal/services"
	"payout-service/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}
	defer a.Close()

	if err := repository.InitSchema(a.DB); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	if err := handler.RegisterValidators(); err != nil {
		log.Fatalf("Failed to register validators: %v", err)
	}

	// the in-process queue only works when the api runs the workers itself
	if cfg.Queue.Embedded || cfg.Queue.Driver == config.QueueDriverMemory {
		workers, err := a.NewWorkers()
		if err != nil {
			log.Fatalf("Failed to build workers: %v", err)
		}
		if err := workers.Start(ctx); err != nil {
			log.Fatalf("Failed to start workers: %v", err)
		}
		defer workers.Stop()
	}

	payoutService := services.NewPayoutService(a.Repo, a.Tasks, a.Publisher, l)
	limiter := redis.NewRateLimiter(a.Redis, redis.RateLimitConfig{
		CreateLimit: cfg.RateLimitCreatePerMin,
	})

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Payout: handler.NewPayoutHandler(payoutService),
	}, limiter, a.HealthChecks())

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %v", err)
	}
}
