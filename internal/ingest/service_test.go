package ingest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/rules"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
	"github.com/ises-energia/scrc-backend/pkg/outbox"
)

type stubRepo struct {
	existing  []models.Order
	created   []*models.Order
	updates   map[uuid.UUID]map[string]any
	createErr error
}

func (s *stubRepo) WithTx(_ *gorm.DB) Repository { return s }

func (s *stubRepo) FindByNumbers(_ context.Context, _ []string) ([]models.Order, error) {
	return s.existing, nil
}

func (s *stubRepo) Create(_ context.Context, order *models.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, order)
	return nil
}

func (s *stubRepo) UpdateFields(_ context.Context, id uuid.UUID, update map[string]any) error {
	if s.updates == nil {
		s.updates = map[uuid.UUID]map[string]any{}
	}
	s.updates[id] = update
	return nil
}

type stubTx struct {
	calls int
}

func (s *stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.calls++
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubRules struct {
	snapshot *rules.Snapshot
	err      error
}

func (s *stubRules) Load(_ context.Context) (*rules.Snapshot, error) {
	return s.snapshot, s.err
}

func testSnapshot() *rules.Snapshot {
	return &rules.Snapshot{
		DefaultCapacity: 20,
		RuralPatterns:   []string{"VEREDA", "KM", "CARRETERA"},
		UrbanPatterns:   []string{"CALLE", "CRA", "BARRIO"},
		HighDebtFloor:   decimal.NewFromInt(1000000),
	}
}

func newTestService(t *testing.T, repo *stubRepo) (*Service, *stubOutbox) {
	t.Helper()
	ob := &stubOutbox{}
	svc, err := NewService(Params{
		Repo:   repo,
		Tx:     &stubTx{},
		Outbox: ob,
		Rules:  &stubRules{snapshot: testSnapshot()},
		Logger: logger.New(logger.Options{ServiceName: "test"}),
	})
	require.NoError(t, err)
	return svc, ob
}

func rawRow(number, osCode string) RawOrder {
	return RawOrder{
		NIC:           "100" + number,
		OrderNumber:   number,
		OSCode:        osCode,
		Municipality:  "SINCELEJO",
		Address:       "CALLE 20 # 15-30",
		StrategicLine: "Barrios",
		AmountDue:     decimal.NewFromInt(250000),
	}
}

func TestIngestRejectsEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t, &stubRepo{})

	_, err := svc.Ingest(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestIngestCreatesPendingWithDerivedFields(t *testing.T) {
	repo := &stubRepo{}
	svc, ob := newTestService(t, repo)

	result, err := svc.Ingest(context.Background(), []RawOrder{rawRow("OS-1", "TO502")}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	require.Len(t, repo.created, 1)
	order := repo.created[0]
	assert.Equal(t, enums.OrderTypeReconexion, order.OrderType)
	assert.Equal(t, 1, order.Priority)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "B", order.ZoneCode)
	assert.Equal(t, enums.ZoneKindUrban, order.ZoneKind)

	require.Len(t, ob.events, 1)
	assert.Equal(t, enums.EventOrdersIngested, ob.events[0].EventType)
}

func TestIngestClassifiesRuralAddress(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := newTestService(t, repo)

	row := rawRow("OS-1", "TO501")
	row.Address = "VEREDA EL SALADO KM 4"
	_, err := svc.Ingest(context.Background(), []RawOrder{row}, nil)
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	assert.Equal(t, enums.ZoneKindRural, repo.created[0].ZoneKind)
	assert.Equal(t, 3, repo.created[0].Priority)
}

func TestIngestRefreshesPendingOrder(t *testing.T) {
	existing := models.Order{
		ID:          uuid.New(),
		OrderNumber: "OS-1",
		Status:      enums.OrderStatusPending,
	}
	repo := &stubRepo{existing: []models.Order{existing}}
	svc, _ := newTestService(t, repo)

	row := rawRow("OS-1", "TO503")
	row.AmountDue = decimal.NewFromInt(900000)
	result, err := svc.Ingest(context.Background(), []RawOrder{row}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, repo.created)
	update := repo.updates[existing.ID]
	require.NotNil(t, update)
	assert.Equal(t, row.AmountDue, update["amount_due"])
	assert.NotContains(t, update, "status")
	assert.NotContains(t, update, "assigned_brigade_id")
}

func TestIngestCancelsPaidPendingOrder(t *testing.T) {
	existing := models.Order{
		ID:          uuid.New(),
		OrderNumber: "OS-1",
		Status:      enums.OrderStatusPending,
	}
	repo := &stubRepo{existing: []models.Order{existing}}
	svc, _ := newTestService(t, repo)

	row := rawRow("OS-1", "TO501")
	row.Paid = true
	result, err := svc.Ingest(context.Background(), []RawOrder{row}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Cancelled)
	update := repo.updates[existing.ID]
	require.NotNil(t, update)
	assert.Equal(t, enums.OrderStatusCancelledPayment, update["status"])
}

func TestIngestLeavesFieldWorkAlone(t *testing.T) {
	brigadeID := uuid.New()
	existing := models.Order{
		ID:                uuid.New(),
		OrderNumber:       "OS-1",
		Status:            enums.OrderStatusAssigned,
		AssignedBrigadeID: &brigadeID,
	}
	repo := &stubRepo{existing: []models.Order{existing}}
	svc, _ := newTestService(t, repo)

	result, err := svc.Ingest(context.Background(), []RawOrder{rawRow("OS-1", "TO501")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	update := repo.updates[existing.ID]
	require.NotNil(t, update)
	assert.Contains(t, update, "amount_due")
	assert.Len(t, update, 1, "in-field orders only get their debt refreshed")
}

func TestIngestSkipsBadRowsWithoutAborting(t *testing.T) {
	repo := &stubRepo{}
	svc, _ := newTestService(t, repo)

	bad := rawRow("OS-1", "TO999")
	missing := RawOrder{OrderNumber: "OS-2", OSCode: "TO501"}
	good := rawRow("OS-3", "TO501")

	result, err := svc.Ingest(context.Background(), []RawOrder{bad, missing, good}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "OS-1", result.Errors[0].OrderNumber)
}

func TestIngestSurfacesDuplicateRaceAsConflict(t *testing.T) {
	repo := &stubRepo{createErr: &pq.Error{Code: "23505", Constraint: "orders_order_number_key"}}
	svc, _ := newTestService(t, repo)

	_, err := svc.Ingest(context.Background(), []RawOrder{rawRow("OS-1", "TO501")}, nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestIngestSkipsCompletedOrders(t *testing.T) {
	existing := models.Order{
		ID:          uuid.New(),
		OrderNumber: "OS-1",
		Status:      enums.OrderStatusCompleted,
	}
	repo := &stubRepo{existing: []models.Order{existing}}
	svc, _ := newTestService(t, repo)

	result, err := svc.Ingest(context.Background(), []RawOrder{rawRow("OS-1", "TO501")}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, repo.updates)
}
