package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/dripline/dripline/pkg/cmd"
	"github.com/dripline/dripline/pkg/engine"
	"github.com/dripline/dripline/pkg/log"
	"github.com/dripline/dripline/pkg/otelhelper"
)

func runTicker(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("dripline-ticker")

	logger.InfoContext(ctx, "Initializing dripline ticker")

	persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	defer func() {
		err := persistence.Close(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	registry := cmd.NewRegistry(logger, persistence, cmd.ChannelConfig{
		LinkedInBaseURL: command.String("linkedin-proxy-url"),
		LinkedInAPIKey:  command.String("linkedin-api-key"),
	})

	var locker engine.RunLocker = engine.NoopLocker{}

	if redisURL := command.String("redis-url"); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return err
		}

		locker = engine.NewRedisLocker(redis.NewClient(opts), 2*time.Minute)
	}

	tracer, err := otelhelper.NewTracer(ctx, "dripline-ticker")
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)

		tracer = nil
	}

	driver := engine.NewDriver(persistence, registry, locker, engine.Config{
		BatchSize:       command.Int("batch-size"),
		MaxStepsPerTick: command.Int("max-steps"),
		RunPacing:       command.Duration("run-pacing"),
	}, tracer, logger)

	if command.Bool("once") {
		_, err := driver.ProcessDueRuns(ctx, time.Now().UTC())

		return err
	}

	scheduler := cron.New()

	_, err = scheduler.AddFunc(command.String("schedule"), func() {
		_, err := driver.ProcessDueRuns(ctx, time.Now().UTC())
		if err != nil {
			logger.ErrorContext(ctx, "Tick failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	scheduler.Start()

	logger.InfoContext(ctx, "Ticker started", "schedule", command.String("schedule"))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	<-signals
	logger.InfoContext(ctx, "Shutting down ticker...")

	stopCtx := scheduler.Stop()
	<-stopCtx.Done()

	return nil
}
