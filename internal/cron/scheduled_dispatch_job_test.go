package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

type fakeEngine struct {
	inputs []dispatch.AutoAssignInput
	result *dispatch.AutoAssignResult
	err    error
}

func (f *fakeEngine) AutoAssign(ctx context.Context, input dispatch.AutoAssignInput) (*dispatch.AutoAssignResult, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newScheduledJob(t *testing.T, engine *fakeEngine, cfg config.DispatchConfig) Job {
	t.Helper()
	job, err := NewScheduledDispatchJob(ScheduledDispatchJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Engine:   engine,
		Dispatch: cfg,
	})
	if err != nil {
		t.Fatalf("NewScheduledDispatchJob: %v", err)
	}
	return job
}

func TestScheduledDispatchRunsConfiguredBatch(t *testing.T) {
	engine := &fakeEngine{result: &dispatch.AutoAssignResult{Assigned: 3, Skipped: 1, TotalOrders: 4}}
	job := newScheduledJob(t, engine, config.DispatchConfig{
		ScheduledEnabled: true,
		ScheduledBatch:   200,
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.inputs) != 1 {
		t.Fatalf("expected one engine call, got %d", len(engine.inputs))
	}
	input := engine.inputs[0]
	if input.MaxOrders != 200 {
		t.Fatalf("expected batch of 200, got %d", input.MaxOrders)
	}
	if input.Trigger != dispatch.TriggerScheduled {
		t.Fatalf("expected scheduled trigger, got %q", input.Trigger)
	}
	if input.DryRun {
		t.Fatal("scheduled dispatch must not be a dry run")
	}
}

func TestScheduledDispatchDisabled(t *testing.T) {
	engine := &fakeEngine{}
	job := newScheduledJob(t, engine, config.DispatchConfig{ScheduledEnabled: false})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(engine.inputs) != 0 {
		t.Fatal("disabled job must not call the engine")
	}
}

func TestScheduledDispatchPropagatesEngineError(t *testing.T) {
	engine := &fakeEngine{err: errors.New("store down")}
	job := newScheduledJob(t, engine, config.DispatchConfig{
		ScheduledEnabled: true,
		ScheduledBatch:   200,
	})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
