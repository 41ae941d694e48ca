package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/labstock/labstock/internal/app"
	"github.com/labstock/labstock/internal/backend"
	jobmetrics "github.com/labstock/labstock/internal/jobs"
	"github.com/labstock/labstock/internal/lab"
	"github.com/labstock/labstock/internal/platform/cache"
	"github.com/labstock/labstock/jobs"
)

// serviceRefresher runs refetches under the worker's backend token.
type serviceRefresher struct {
	service *lab.Service
	token   string
}

func (r serviceRefresher) InvalidateAndRefetch(ctx context.Context, entity string) error {
	return r.service.InvalidateAndRefetch(backend.ContextWithToken(ctx, r.token), entity)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if !cfg.RedisEnabled() {
		logger.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogue := lab.NewCatalogue()
	service := lab.NewService(
		catalogue,
		backend.NewClient(cfg.BackendURL, cfg.BackendTimeout),
		cache.NewStore(redisClient, cfg.CollectionTTL),
		nil,
		lab.Options{Logger: logger},
	)

	warmupJob := jobs.NewCollectionsWarmupJob(
		serviceRefresher{service: service, token: cfg.BackendServiceToken},
		catalogue.Entities(),
		logger,
		jobmetrics.NewMetrics(nil),
	)

	var cron []jobs.CronRegistration
	if cfg.WarmupCron != "" {
		warmupTask, err := jobs.NewCollectionsWarmTask(jobs.CollectionsWarmPayload{})
		if err != nil {
			logger.Error("build warmup task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: cfg.WarmupCron, Task: warmupTask})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCollectionsWarm, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
