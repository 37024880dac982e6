package cron

import (
	"context"
	"fmt"

	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

type dispatchEngine interface {
	AutoAssign(ctx context.Context, input dispatch.AutoAssignInput) (*dispatch.AutoAssignResult, error)
}

type ScheduledDispatchJobParams struct {
	Logger   *logger.Logger
	Engine   dispatchEngine
	Dispatch config.DispatchConfig
}

// NewScheduledDispatchJob builds the morning batch run that drains the
// pending backlog across all active brigades.
func NewScheduledDispatchJob(params ScheduledDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("dispatch engine required")
	}
	batch := params.Dispatch.ScheduledBatch
	if batch <= 0 {
		batch = params.Dispatch.MaxBatchSize
	}
	return &scheduledDispatchJob{
		logg:    params.Logger,
		engine:  params.Engine,
		batch:   batch,
		enabled: params.Dispatch.ScheduledEnabled,
	}, nil
}

type scheduledDispatchJob struct {
	logg    *logger.Logger
	engine  dispatchEngine
	batch   int
	enabled bool
}

func (j *scheduledDispatchJob) Name() string { return "scheduled-dispatch" }

func (j *scheduledDispatchJob) Run(ctx context.Context) error {
	if !j.enabled {
		j.logg.Info(ctx, "scheduled dispatch disabled; skipping")
		return nil
	}
	result, err := j.engine.AutoAssign(ctx, dispatch.AutoAssignInput{
		MaxOrders: j.batch,
		Trigger:   dispatch.TriggerScheduled,
	})
	if err != nil {
		return fmt.Errorf("scheduled dispatch: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"assigned":     result.Assigned,
		"skipped":      result.Skipped,
		"total_orders": result.TotalOrders,
	})
	j.logg.Info(logCtx, "scheduled dispatch complete")
	return nil
}
