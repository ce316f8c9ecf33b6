package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nahuelfrank/proyectogestiondesalud-sub001/internal/repository/postgres"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/circuitbreaker"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/clock"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/messaging/redis"
	"github.com/nahuelfrank/proyectogestiondesalud-sub001/pkg/worker"
)

func workerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Publish outbox events to redis and prune processed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			wait, err := startWorkers(ctx, a)
			if err != nil {
				return err
			}
			<-ctx.Done()
			a.logger.Info("Stopping outbox workers")
			wait()
			return nil
		},
	}
}

// startWorkers runs the outbox processor and cleanup loops until ctx ends.
// The returned func waits for both to exit and closes the broker.
func startWorkers(ctx context.Context, a *app) (func(), error) {
	client, err := a.redisClient(ctx)
	if err != nil {
		return nil, err
	}

	cfg := a.cfg.Outbox
	clk := clock.System()
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "outbox-broker"})
	broker := redis.NewRedisBroker(client, cb, a.logger.ZL)
	repo := postgres.NewOutboxRepository(a.db)

	processor := worker.NewOutboxProcessor(repo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.BatchSize,
		PollInterval:  cfg.PollInterval,
		RetryAttempts: cfg.RetryAttempts,
		RetryDelay:    cfg.RetryDelay,
		ChannelPrefix: cfg.ChannelPrefix,
	}, a.logger, a.metrics, clk)
	cleanup := worker.NewOutboxCleanupWorker(repo, cfg.Retention, cfg.CleanupInterval, a.logger, clk)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	return func() {
		wg.Wait()
		broker.Close()
	}, nil
}
