package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	syncer "github.com/meridian-pos/meridian-pos/internal/sync"
)

// Syncer is the slice of the orchestrator the job handlers drive.
type Syncer interface {
	TriggerSales(ctx context.Context) (syncer.Outcome, error)
	TriggerProducts(ctx context.Context) (syncer.Outcome, error)
}

// SyncJob handles the scheduled sync tasks.
type SyncJob struct {
	Syncer Syncer
	Logger *slog.Logger
}

// NewSyncJob wires the handler.
func NewSyncJob(s Syncer, logger *slog.Logger) *SyncJob {
	return &SyncJob{Syncer: s, Logger: logger}
}

// HandleSales processes TaskSyncSales tasks.
func (j *SyncJob) HandleSales(ctx context.Context, t *asynq.Task) error {
	return j.handle(ctx, t, TaskSyncSales, j.Syncer.TriggerSales)
}

// HandleCatalog processes TaskSyncCatalog tasks.
func (j *SyncJob) HandleCatalog(ctx context.Context, t *asynq.Task) error {
	return j.handle(ctx, t, TaskSyncCatalog, j.Syncer.TriggerProducts)
}

func (j *SyncJob) handle(ctx context.Context, t *asynq.Task, taskType string, trigger func(context.Context) (syncer.Outcome, error)) error {
	if j == nil || j.Syncer == nil {
		return errors.New("sync job: handler not configured")
	}
	var payload SyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(slog.String("job", taskType), slog.String("reason", payload.Reason))
	outcome, err := trigger(ctx)
	if err != nil {
		logger.Error("sync run failed", slog.String("outcome", string(outcome)), slog.Any("error", err))
		return err
	}
	logger.Info("sync run finished", slog.String("outcome", string(outcome)))
	return nil
}

func (j *SyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
