package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a dispatch repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Order("priority ASC").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListActiveBrigades(ctx context.Context) ([]models.Brigade, error) {
	var brigades []models.Brigade
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.BrigadeStatusActive).
		Order("code ASC").
		Find(&brigades).Error
	if err != nil {
		return nil, err
	}
	return brigades, nil
}

func (r *repository) FindBrigade(ctx context.Context, id uuid.UUID) (*models.Brigade, error) {
	var brigade models.Brigade
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&brigade).Error
	if err != nil {
		return nil, err
	}
	return &brigade, nil
}

func (r *repository) LockBrigades(ctx context.Context, ids []uuid.UUID) ([]models.Brigade, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var brigades []models.Brigade
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&brigades).Error
	if err != nil {
		return nil, err
	}
	return brigades, nil
}

func (r *repository) CountAssignedOn(ctx context.Context, day time.Time) (map[uuid.UUID]int, error) {
	start, end := dayBounds(day)
	var rows []struct {
		AssignedBrigadeID uuid.UUID
		Total             int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("assigned_brigade_id, COUNT(*) AS total").
		Where("assigned_brigade_id IS NOT NULL").
		Where("assignment_date >= ? AND assignment_date < ?", start, end).
		Group("assigned_brigade_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.AssignedBrigadeID] = row.Total
	}
	return counts, nil
}

func (r *repository) CountBacklog(ctx context.Context, brigadeID uuid.UUID, day time.Time) (int, error) {
	start, end := dayBounds(day)
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("assigned_brigade_id = ?", brigadeID).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusAssigned, enums.OrderStatusInProgress}).
		Where("assignment_date >= ? AND assignment_date < ?", start, end).
		Count(&total).Error
	return int(total), err
}

func (r *repository) AssignPending(ctx context.Context, orderID, brigadeID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":              enums.OrderStatusAssigned,
			"assigned_brigade_id": brigadeID,
			"assignment_date":     at,
		})
	return res.RowsAffected, res.Error
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}
