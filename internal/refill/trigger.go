package refill

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	"github.com/ises-energia/scrc-backend/pkg/logger"
	"github.com/ises-energia/scrc-backend/pkg/outbox"
)

type backlogCounter interface {
	CountBacklog(ctx context.Context, brigadeID uuid.UUID, day time.Time) (int, error)
}

type assignmentEngine interface {
	AutoAssign(ctx context.Context, input dispatch.AutoAssignInput) (*dispatch.AutoAssignResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// OrdersRefilledEvent names the brigade and count so dispatchers can see why
// new work appeared outside a manual run.
type OrdersRefilledEvent struct {
	BrigadeID uuid.UUID `json:"brigade_id"`
	Assigned  int       `json:"assigned"`
	Backlog   int       `json:"backlog"`
}

// Trigger tops up a brigade that is about to run out of work. It is an
// opportunistic re-optimization, never a guarantee.
type Trigger struct {
	counts backlogCounter
	engine assignmentEngine
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	cfg    config.RefillConfig
	now    func() time.Time
}

type Params struct {
	Counts backlogCounter
	Engine assignmentEngine
	Tx     txRunner
	Outbox outboxPublisher
	Logger *logger.Logger
	Refill config.RefillConfig
	Now    func() time.Time
}

func NewTrigger(params Params) (*Trigger, error) {
	if params.Counts == nil {
		return nil, fmt.Errorf("backlog counter required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("assignment engine required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Trigger{
		counts: params.Counts,
		engine: params.Engine,
		tx:     params.Tx,
		outbox: params.Outbox,
		logg:   params.Logger,
		cfg:    params.Refill,
		now:    now,
	}, nil
}

// OrderCompleted is invoked right after an order for the brigade reaches a
// terminal state. When the brigade's remaining backlog is small and the day
// is young enough, it runs a boosted small batch for just that brigade.
func (t *Trigger) OrderCompleted(ctx context.Context, brigadeID uuid.UUID) (*dispatch.AutoAssignResult, error) {
	if brigadeID == uuid.Nil {
		return nil, nil
	}
	now := t.now()
	ctx = t.logg.WithBrigadeID(ctx, brigadeID.String())

	backlog, err := t.counts.CountBacklog(ctx, brigadeID, now)
	if err != nil {
		return nil, fmt.Errorf("counting brigade backlog: %w", err)
	}
	if backlog >= t.cfg.BacklogThreshold {
		return nil, nil
	}
	if now.Hour() >= t.cfg.CutoffHour {
		t.logg.Info(ctx, "refill skipped past cutoff hour")
		return nil, nil
	}

	result, err := t.engine.AutoAssign(ctx, dispatch.AutoAssignInput{
		MaxOrders:         t.cfg.BatchSize,
		SpecificBrigadeID: &brigadeID,
		BoostCapacity:     t.cfg.BoostCapacity,
		Trigger:           dispatch.TriggerRefill,
	})
	if err != nil {
		return nil, err
	}
	if result.Assigned == 0 {
		return result, nil
	}

	event := OrdersRefilledEvent{
		BrigadeID: brigadeID,
		Assigned:  result.Assigned,
		Backlog:   backlog,
	}
	err = t.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return t.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrdersRefilled,
			AggregateType: enums.AggregateBrigade,
			AggregateID:   brigadeID,
			Data:          event,
			Version:       1,
		})
	})
	if err != nil {
		// The assignments already committed; a lost refill event is a hint,
		// not state.
		t.logg.Error(ctx, "emitting refill event failed", err)
	}

	ctx = t.logg.WithFields(ctx, map[string]any{"assigned": result.Assigned, "backlog": backlog})
	t.logg.Info(ctx, "brigade refilled")
	return result, nil
}
