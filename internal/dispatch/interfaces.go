package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
)

// Repository exposes the persistence surface needed by the assignment engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// ListPending returns pending orders in dispatch order: priority
	// ascending, then creation time ascending.
	ListPending(ctx context.Context, limit int) ([]models.Order, error)

	ListActiveBrigades(ctx context.Context) ([]models.Brigade, error)
	FindBrigade(ctx context.Context, id uuid.UUID) (*models.Brigade, error)

	// LockBrigades reloads the given brigades under FOR UPDATE so capacity
	// reads and assignment writes are atomic per batch.
	LockBrigades(ctx context.Context, ids []uuid.UUID) ([]models.Brigade, error)

	// CountAssignedOn returns the number of orders assigned to each brigade
	// on the given day, derived from the order table.
	CountAssignedOn(ctx context.Context, day time.Time) (map[uuid.UUID]int, error)

	// CountBacklog counts the brigade's still-open orders assigned on the
	// given day.
	CountBacklog(ctx context.Context, brigadeID uuid.UUID, day time.Time) (int, error)

	// AssignPending marks a pending order as assigned. It returns the number
	// of rows updated; zero means another invocation won the race.
	AssignPending(ctx context.Context, orderID, brigadeID uuid.UUID, at time.Time) (int64, error)
}
