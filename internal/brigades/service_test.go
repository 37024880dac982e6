package brigades

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/rules"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
)

type stubRepo struct {
	brigades []models.Brigade
	assigned map[uuid.UUID]int
	open     map[uuid.UUID]int
	findErr  error
}

func (s *stubRepo) ListBrigades(_ context.Context) ([]models.Brigade, error) {
	return s.brigades, nil
}

func (s *stubRepo) FindBrigade(_ context.Context, id uuid.UUID) (*models.Brigade, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, brigade := range s.brigades {
		if brigade.ID == id {
			copied := brigade
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) CountAssignedOn(_ context.Context, _ time.Time) (map[uuid.UUID]int, error) {
	return s.assigned, nil
}

func (s *stubRepo) CountOpenOn(_ context.Context, _ time.Time) (map[uuid.UUID]int, error) {
	return s.open, nil
}

type stubRules struct {
	snapshot *rules.Snapshot
}

func (s *stubRules) Load(_ context.Context) (*rules.Snapshot, error) {
	return s.snapshot, nil
}

func TestListDerivesWorkloadFromOrders(t *testing.T) {
	liviana := models.Brigade{
		ID:          uuid.New(),
		Code:        "BR-01",
		BrigadeType: enums.BrigadeTypeLiviana,
		Status:      enums.BrigadeStatusActive,
	}
	pinned := models.Brigade{
		ID:             uuid.New(),
		Code:           "BR-02",
		BrigadeType:    enums.BrigadeTypeLiviana,
		Status:         enums.BrigadeStatusActive,
		CapacityPerDay: 8,
	}
	repo := &stubRepo{
		brigades: []models.Brigade{liviana, pinned},
		assigned: map[uuid.UUID]int{liviana.ID: 12, pinned.ID: 9},
		open:     map[uuid.UUID]int{liviana.ID: 4},
	}
	loader := &stubRules{snapshot: &rules.Snapshot{
		DefaultCapacity: 20,
		Capacities:      map[enums.BrigadeType]int{enums.BrigadeTypeLiviana: 30},
	}}

	svc, err := NewService(repo, loader, nil)
	require.NoError(t, err)

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 30, views[0].Capacity, "type capacity applies when the row carries none")
	assert.Equal(t, 12, views[0].AssignedToday)
	assert.Equal(t, 4, views[0].OpenBacklog)
	assert.Equal(t, 18, views[0].Remaining)

	assert.Equal(t, 8, views[1].Capacity, "a per-brigade capacity overrides the type table")
	assert.Equal(t, 0, views[1].Remaining, "remaining never goes negative")
}

func TestFindUnknownBrigade(t *testing.T) {
	svc, err := NewService(&stubRepo{}, &stubRules{snapshot: &rules.Snapshot{}}, nil)
	require.NoError(t, err)

	_, err = svc.Find(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Find(context.Background(), uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
