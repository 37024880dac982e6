package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/rules"
	"github.com/ises-energia/scrc-backend/pkg/db"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
	"github.com/ises-energia/scrc-backend/pkg/outbox"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rulesLoader interface {
	Load(ctx context.Context) (*rules.Snapshot, error)
}

// RawOrder is one row from the upstream commercial system.
type RawOrder struct {
	NIC                 string             `json:"nic" validate:"required"`
	OrderNumber         string             `json:"orderNumber" validate:"required"`
	OSCode              string             `json:"osCode" validate:"required"`
	Municipality        string             `json:"municipality"`
	Neighborhood        string             `json:"neighborhood"`
	Address             string             `json:"address"`
	StrategicLine       string             `json:"strategicLine"`
	AmountDue           decimal.Decimal    `json:"amountDue"`
	RequiredBrigadeType *enums.BrigadeType `json:"requiredBrigadeType,omitempty"`
	Latitude            *float64           `json:"latitude,omitempty"`
	Longitude           *float64           `json:"longitude,omitempty"`
	Paid                bool               `json:"paid"`
}

// RowError reports why one row was skipped. A bad row never aborts the batch.
type RowError struct {
	OrderNumber string `json:"orderNumber"`
	Reason      string `json:"reason"`
}

// Result summarizes one ingest batch.
type Result struct {
	Total     int        `json:"total"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Cancelled int        `json:"cancelled"`
	Skipped   int        `json:"skipped"`
	Errors    []RowError `json:"errors,omitempty"`
}

// OrdersIngestedEvent is the outbox payload for one committed batch.
type OrdersIngestedEvent struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Total     int       `json:"total"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Cancelled int       `json:"cancelled"`
	Skipped   int       `json:"skipped"`
}

// Service upserts work orders from the commercial system. It only ever
// writes pending orders; brigade and execution fields belong to dispatch and
// closure respectively.
type Service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	rules    rulesLoader
	validate *validator.Validate
	logg     *logger.Logger
}

type Params struct {
	Repo   Repository
	Tx     txRunner
	Outbox outboxPublisher
	Rules  rulesLoader
	Logger *logger.Logger
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
	if params.Rules == nil {
		return nil, fmt.Errorf("rules loader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		rules:    params.Rules,
		validate: validator.New(),
		logg:     params.Logger,
	}, nil
}

// Ingest upserts the batch in one transaction, keyed by order number.
// Existing pending orders are refreshed, paid pending orders are cancelled,
// and orders already in the field only get their debt updated.
func (s *Service) Ingest(ctx context.Context, rows []RawOrder, actor *outbox.ActorRef) (*Result, error) {
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders batch is empty")
	}

	snapshot, err := s.rules.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading dispatch rules")
	}

	result := &Result{Total: len(rows)}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		numbers := make([]string, 0, len(rows))
		for _, row := range rows {
			if row.OrderNumber != "" {
				numbers = append(numbers, row.OrderNumber)
			}
		}
		existing, err := repo.FindByNumbers(ctx, numbers)
		if err != nil {
			return err
		}
		byNumber := make(map[string]models.Order, len(existing))
		for _, order := range existing {
			byNumber[order.OrderNumber] = order
		}

		for _, row := range rows {
			if err := s.applyRow(ctx, repo, snapshot, byNumber, row, result); err != nil {
				return err
			}
		}

		event := OrdersIngestedEvent{
			BatchID:   uuid.New(),
			Total:     result.Total,
			Created:   result.Created,
			Updated:   result.Updated,
			Cancelled: result.Cancelled,
			Skipped:   result.Skipped,
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrdersIngested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   event.BatchID,
			Actor:         actor,
			Data:          event,
			Version:       1,
		})
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"total":     result.Total,
		"created":   result.Created,
		"updated":   result.Updated,
		"cancelled": result.Cancelled,
		"skipped":   result.Skipped,
	})
	s.logg.Info(ctx, "orders ingested")
	return result, nil
}

func (s *Service) applyRow(ctx context.Context, repo Repository, snapshot *rules.Snapshot, byNumber map[string]models.Order, row RawOrder, result *Result) error {
	if err := s.validate.Struct(row); err != nil {
		result.Skipped++
		result.Errors = append(result.Errors, RowError{OrderNumber: row.OrderNumber, Reason: err.Error()})
		return nil
	}
	orderType, ok := enums.OrderTypeFromOSCode(row.OSCode)
	if !ok {
		result.Skipped++
		result.Errors = append(result.Errors, RowError{
			OrderNumber: row.OrderNumber,
			Reason:      fmt.Sprintf("unknown os code %q", row.OSCode),
		})
		return nil
	}

	current, exists := byNumber[row.OrderNumber]
	if !exists {
		if row.Paid {
			// Nothing to cancel; a paid order we never saw is not created.
			result.Skipped++
			return nil
		}
		order := s.buildOrder(row, orderType, snapshot)
		if err := repo.Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				// A concurrent batch created the same order number after our
				// read. The insert aborted the transaction, so surface a
				// retryable conflict instead of limping on.
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("order %s already exists", row.OrderNumber))
			}
			return err
		}
		result.Created++
		return nil
	}

	switch current.Status {
	case enums.OrderStatusPending:
		if row.Paid {
			err := repo.UpdateFields(ctx, current.ID, map[string]any{
				"status":     enums.OrderStatusCancelledPayment,
				"amount_due": row.AmountDue,
			})
			if err != nil {
				return err
			}
			result.Cancelled++
			return nil
		}
		update := map[string]any{
			"amount_due":   row.AmountDue,
			"municipality": row.Municipality,
			"neighborhood": row.Neighborhood,
			"address":      row.Address,
		}
		if loc := locationFrom(row); loc != nil {
			update["reference_location"] = loc
		}
		if err := repo.UpdateFields(ctx, current.ID, update); err != nil {
			return err
		}
		result.Updated++
	case enums.OrderStatusAssigned, enums.OrderStatusInProgress:
		// The order is in the field; refresh the debt but leave the
		// assignment alone.
		err := repo.UpdateFields(ctx, current.ID, map[string]any{"amount_due": row.AmountDue})
		if err != nil {
			return err
		}
		result.Updated++
	default:
		result.Skipped++
	}
	return nil
}

func (s *Service) buildOrder(row RawOrder, orderType enums.OrderType, snapshot *rules.Snapshot) *models.Order {
	zoneCode := rules.ZoneCodeFromStrategicLine(row.StrategicLine)
	order := &models.Order{
		ID:                  uuid.New(),
		OrderNumber:         row.OrderNumber,
		NIC:                 row.NIC,
		OrderType:           orderType,
		Status:              enums.OrderStatusPending,
		Priority:            orderType.Priority(),
		Municipality:        row.Municipality,
		Neighborhood:        row.Neighborhood,
		Address:             row.Address,
		ZoneCode:            zoneCode,
		ZoneKind:            snapshot.ClassifyZone(row.Address),
		StrategicLine:       row.StrategicLine,
		RequiredBrigadeType: row.RequiredBrigadeType,
		AmountDue:           row.AmountDue,
		ReferenceLocation:   locationFrom(row),
		CreatedAt:           time.Now(),
	}
	return order
}

func locationFrom(row RawOrder) *types.GeographyPoint {
	if row.Latitude == nil || row.Longitude == nil {
		return nil
	}
	return &types.GeographyPoint{Lat: *row.Latitude, Lng: *row.Longitude}
}
