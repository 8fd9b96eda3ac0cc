package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"payout-service/config"
	"payout-service/internal/app"
	"payout-service/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	if cfg.Queue.Driver == config.QueueDriverMemory {
		log.Fatalf("QUEUE_DRIVER=memory cannot be shared with the api; run the api with WORKER_EMBEDDED=true instead")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, l)
	if err != nil {
		log.Fatalf("Failed to initialise: %v", err)
	}
	defer a.Close()

	workers, err := a.NewWorkers()
	if err != nil {
		log.Fatalf("Failed to build workers: %v", err)
	}
	if err := workers.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	<-ctx.Done()
	l.Infof("Quitting signal received.. waiting for in-flight tasks")
	workers.Stop()
	l.Infof("Worker stopped gracefully")
}
