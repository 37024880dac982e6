package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
)

func setupDispatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  nic TEXT NOT NULL,
  order_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  priority INTEGER NOT NULL DEFAULT 99,
  municipality TEXT,
  neighborhood TEXT,
  address TEXT,
  zone_code TEXT,
  zone_kind TEXT NOT NULL DEFAULT 'urban',
  strategic_line TEXT,
  required_brigade_type TEXT,
  amount_due TEXT NOT NULL DEFAULT '0',
  reference_location TEXT,
  assigned_brigade_id TEXT,
  assignment_date DATETIME,
  started_at DATETIME,
  completed_at DATETIME,
  closure_result TEXT,
  execution_lat REAL,
  execution_lng REAL,
  execution_duration_minutes INTEGER,
  audit_flags TEXT,
  is_flagged INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	brigades := `
CREATE TABLE IF NOT EXISTS brigades (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  brigade_type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  current_zone TEXT,
  capacity_per_day INTEGER NOT NULL DEFAULT 0,
  members TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(brigades).Error)
	require.NoError(t, db.Exec(`DELETE FROM orders`).Error)
	require.NoError(t, db.Exec(`DELETE FROM brigades`).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, number string, priority int, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		NIC:         "100" + number,
		OrderType:   enums.OrderTypeReconexion,
		Status:      enums.OrderStatusPending,
		Priority:    priority,
		ZoneCode:    "B",
		ZoneKind:    enums.ZoneKindUrban,
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func seedBrigade(t *testing.T, db *gorm.DB, code string, status enums.BrigadeStatus) models.Brigade {
	t.Helper()
	brigade := models.Brigade{
		ID:          uuid.New(),
		Code:        code,
		Name:        "Brigada " + code,
		BrigadeType: enums.BrigadeTypeLiviana,
		Status:      status,
	}
	require.NoError(t, db.Create(&brigade).Error)
	return brigade
}

func TestListPendingOrdering(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	seedOrder(t, db, "OS-2", 2, base)
	late := seedOrder(t, db, "OS-3", 1, base.Add(time.Second))
	early := seedOrder(t, db, "OS-1", 1, base)

	got, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, early.OrderNumber, got[0].OrderNumber)
	assert.Equal(t, late.OrderNumber, got[1].OrderNumber)
	assert.Equal(t, "OS-2", got[2].OrderNumber)
}

func TestListPendingExcludesNonPending(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "OS-1", 1, time.Now())
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", enums.OrderStatusAssigned).Error)
	seedOrder(t, db, "OS-2", 1, time.Now())

	got, err := repo.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "OS-2", got[0].OrderNumber)
}

func TestListActiveBrigadesFiltersInactive(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedBrigade(t, db, "BR-01", enums.BrigadeStatusActive)
	seedBrigade(t, db, "BR-02", enums.BrigadeStatusInactive)

	got, err := repo.ListActiveBrigades(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BR-01", got[0].Code)
}

func TestAssignPendingGuardsStatus(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, db, "OS-1", 1, time.Now())
	brigade := seedBrigade(t, db, "BR-01", enums.BrigadeStatusActive)
	now := time.Now()

	rows, err := repo.AssignPending(ctx, order.ID, brigade.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	// A second attempt loses the guard: the order is no longer pending.
	rows, err = repo.AssignPending(ctx, order.ID, brigade.ID, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, rows)

	var reloaded models.Order
	require.NoError(t, db.Where("id = ?", order.ID).First(&reloaded).Error)
	assert.Equal(t, enums.OrderStatusAssigned, reloaded.Status)
	require.NotNil(t, reloaded.AssignedBrigadeID)
	assert.Equal(t, brigade.ID, *reloaded.AssignedBrigadeID)
	require.NotNil(t, reloaded.AssignmentDate)
}

func TestCountAssignedOnGroupsByBrigade(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	b1 := seedBrigade(t, db, "BR-01", enums.BrigadeStatusActive)
	b2 := seedBrigade(t, db, "BR-02", enums.BrigadeStatusActive)
	now := time.Now()

	for i, n := range []string{"OS-1", "OS-2", "OS-3"} {
		order := seedOrder(t, db, n, 1, now)
		target := b1.ID
		if i == 2 {
			target = b2.ID
		}
		rows, err := repo.AssignPending(ctx, order.ID, target, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)
	}

	// Yesterday's assignment must not count against today.
	old := seedOrder(t, db, "OS-OLD", 1, now)
	rows, err := repo.AssignPending(ctx, old.ID, b1.ID, now.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	counts, err := repo.CountAssignedOn(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[b1.ID])
	assert.Equal(t, 1, counts[b2.ID])
}

func TestCountBacklogIgnoresCompleted(t *testing.T) {
	db := setupDispatchTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	brigade := seedBrigade(t, db, "BR-01", enums.BrigadeStatusActive)
	now := time.Now()

	open := seedOrder(t, db, "OS-1", 1, now)
	done := seedOrder(t, db, "OS-2", 1, now)
	for _, o := range []models.Order{open, done} {
		rows, err := repo.AssignPending(ctx, o.ID, brigade.ID, now)
		require.NoError(t, err)
		require.EqualValues(t, 1, rows)
	}
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", done.ID).
		Update("status", enums.OrderStatusCompleted).Error)

	backlog, err := repo.CountBacklog(ctx, brigade.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, backlog)
}
