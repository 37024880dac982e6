package closures

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/audit"
	"github.com/ises-energia/scrc-backend/internal/dispatch"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
	"github.com/ises-energia/scrc-backend/pkg/metrics"
	"github.com/ises-energia/scrc-backend/pkg/outbox"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

// Closure results reported by the technician.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refillTrigger interface {
	OrderCompleted(ctx context.Context, brigadeID uuid.UUID) (*dispatch.AutoAssignResult, error)
}

// CloseInput is one technician closure report.
type CloseInput struct {
	OrderID         uuid.UUID
	Result          string
	Latitude        *float64
	Longitude       *float64
	DurationMinutes *int
	Actor           *outbox.ActorRef
}

// CloseResult reports the closed order plus whatever the audit found. Refill
// is nil unless the closure triggered a successful top-up.
type CloseResult struct {
	OrderID     uuid.UUID                  `json:"orderId"`
	OrderNumber string                     `json:"orderNumber"`
	Status      enums.OrderStatus          `json:"status"`
	Flags       types.JSONMap              `json:"auditFlags"`
	IsFlagged   bool                       `json:"isFlagged"`
	Refill      *dispatch.AutoAssignResult `json:"refill,omitempty"`
}

// OrderAuditFlaggedEvent is the outbox payload emitted when a closure trips
// at least one hard audit flag.
type OrderAuditFlaggedEvent struct {
	OrderID     uuid.UUID     `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	BrigadeID   *uuid.UUID    `json:"brigade_id,omitempty"`
	Result      string        `json:"result"`
	Flags       types.JSONMap `json:"flags"`
	FlagNames   []string      `json:"flag_names"`
}

// Service closes field orders: terminal status, execution data, audit flags
// and the flagged event all land in one transaction.
type Service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	refill  refillTrigger
	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
	cfg     config.AuditConfig
	now     func() time.Time
}

type Params struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Refill  refillTrigger
	Logger  *logger.Logger
	Metrics *metrics.DispatchMetrics
	Audit   config.AuditConfig
	Now     func() time.Time
}

func NewService(params Params) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("repository required")
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
	return &Service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		refill:  params.Refill,
		logg:    params.Logger,
		metrics: params.Metrics,
		cfg:     params.Audit,
		now:     now,
	}, nil
}

// Close validates the report, audits it, and persists the terminal state.
// Audit flags never block the closure; they ride along as data.
func (s *Service) Close(ctx context.Context, input CloseInput) (*CloseResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	status, err := statusForResult(input.Result)
	if err != nil {
		return nil, err
	}

	var (
		closed   *models.Order
		flags    types.JSONMap
		flagged  bool
		newFlags []string
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return err
		}
		if order.Status != enums.OrderStatusAssigned && order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order %s cannot be closed from status %s", order.OrderNumber, order.Status))
		}

		verdict := audit.ValidateClosure(order, audit.Closing{
			Latitude:        input.Latitude,
			Longitude:       input.Longitude,
			DurationMinutes: input.DurationMinutes,
		}, s.cfg)

		flags = mergeFlags(order.AuditFlags, verdict.Flags)
		flagged = order.IsFlagged || verdict.Flagged
		newFlags = verdict.FlagNames
		closedAt := s.now()

		update := map[string]any{
			"status":                     status,
			"completed_at":               closedAt,
			"closure_result":             input.Result,
			"execution_lat":              input.Latitude,
			"execution_lng":              input.Longitude,
			"execution_duration_minutes": input.DurationMinutes,
			"audit_flags":                flags,
			"is_flagged":                 flagged,
		}
		rows, err := repo.MarkClosed(ctx, order.ID, update)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was closed by another request")
		}

		if verdict.Flagged {
			event := OrderAuditFlaggedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				BrigadeID:   order.AssignedBrigadeID,
				Result:      input.Result,
				Flags:       verdict.Flags,
				FlagNames:   verdict.FlagNames,
			}
			err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderAuditFlagged,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         input.Actor,
				Data:          event,
				Version:       1,
				OccurredAt:    closedAt,
			})
			if err != nil {
				return err
			}
		}

		closed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, name := range newFlags {
		s.metrics.IncFlag(name)
	}

	ctx = s.logg.WithOrderNumber(ctx, closed.OrderNumber)
	ctx = s.logg.WithFields(ctx, map[string]any{"status": status, "flagged": flagged})
	s.logg.Info(ctx, "order closed")

	result := &CloseResult{
		OrderID:     closed.ID,
		OrderNumber: closed.OrderNumber,
		Status:      status,
		Flags:       flags,
		IsFlagged:   flagged,
	}

	// Refill runs after commit. Losing it costs an optimization, not state.
	if s.refill != nil && closed.AssignedBrigadeID != nil {
		refilled, err := s.refill.OrderCompleted(ctx, *closed.AssignedBrigadeID)
		if err != nil {
			s.logg.Error(ctx, "refill after closure failed", err)
		} else {
			result.Refill = refilled
		}
	}
	return result, nil
}

func statusForResult(result string) (enums.OrderStatus, error) {
	switch result {
	case ResultCompleted:
		return enums.OrderStatusCompleted, nil
	case ResultFailed:
		return enums.OrderStatusFailed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("result must be %q or %q", ResultCompleted, ResultFailed))
	}
}

func mergeFlags(existing, fresh types.JSONMap) types.JSONMap {
	merged := types.JSONMap{}
	for name, value := range existing {
		merged[name] = value
	}
	for name, value := range fresh {
		merged[name] = value
	}
	return merged
}
