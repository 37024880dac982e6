package closures

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
)

// Repository is the persistence surface of the closure flow.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkClosed(ctx context.Context, id uuid.UUID, update map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkClosed writes the terminal status and all execution fields in a single
// guarded update. The status guard makes concurrent closures lose cleanly.
func (r *repository) MarkClosed(ctx context.Context, id uuid.UUID, update map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, []enums.OrderStatus{
			enums.OrderStatusAssigned,
			enums.OrderStatusInProgress,
		}).
		Updates(update)
	return res.RowsAffected, res.Error
}
