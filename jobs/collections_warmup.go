package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/labstock/labstock/internal/jobs"
)

// Refresher reloads one cached collection.
type Refresher interface {
	InvalidateAndRefetch(ctx context.Context, entity string) error
}

// CollectionsWarmupJob refreshes cached collections so the first screen load
// after a backend change does not pay for the fetch.
type CollectionsWarmupJob struct {
	Refresher Refresher
	// Entities is used when the task payload names none.
	Entities []string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Timeout  time.Duration
}

// NewCollectionsWarmupJob wires dependencies for the warm-up handler.
func NewCollectionsWarmupJob(refresher Refresher, entities []string, logger *slog.Logger, metrics *jobmetrics.Metrics) *CollectionsWarmupJob {
	return &CollectionsWarmupJob{
		Refresher: refresher,
		Entities:  entities,
		Logger:    logger,
		Metrics:   metrics,
		Timeout:   20 * time.Second,
	}
}

// Handle processes collection warm-up tasks. Every entity is attempted; the
// joined error reports the ones that failed.
func (j *CollectionsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Refresher == nil {
		return errors.New("collections warmup: handler not configured")
	}
	var payload CollectionsWarmPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("collections warmup: payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	entities := payload.Entities
	if len(entities) == 0 {
		entities = j.Entities
	}

	tracker := j.metrics().Track(TaskCollectionsWarm)
	logger := j.logger()
	start := time.Now()
	logger.Info("starting collections warmup", slog.Int("entities", len(entities)))

	var errs []error
	warmed := 0
	for _, entity := range entities {
		if err := j.warm(ctx, entity); err != nil {
			logger.Error("warm collection", slog.String("entity", entity), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", entity, err))
			continue
		}
		j.metrics().AddWarmed(entity)
		warmed++
	}

	logger.Info("completed collections warmup", slog.Int("warmed", warmed), slog.Duration("duration", time.Since(start)))
	return tracker.End(errors.Join(errs...))
}

func (j *CollectionsWarmupJob) warm(ctx context.Context, entity string) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return j.Refresher.InvalidateAndRefetch(ctx, entity)
}

func (j *CollectionsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCollectionsWarm))
	}
	return slog.Default().With(slog.String("job", TaskCollectionsWarm))
}

func (j *CollectionsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
