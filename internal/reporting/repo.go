package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

// PendingOrderView is the projection the zone clusterer works from.
type PendingOrderView struct {
	ZoneCode          string
	Municipality      string
	ReferenceLocation *types.GeographyPoint
}

// BrigadeOrderCount pairs a brigade with how many orders point at it.
type BrigadeOrderCount struct {
	BrigadeID   uuid.UUID
	BrigadeCode string
	Total       int
}

// Repository is the read-only query surface behind the dashboards.
type Repository interface {
	ListPendingForClustering(ctx context.Context) ([]PendingOrderView, error)
	CountByStatus(ctx context.Context) (map[enums.OrderStatus]int, error)
	CountByType(ctx context.Context) (map[enums.OrderType]int, error)
	CountByBrigade(ctx context.Context) ([]BrigadeOrderCount, error)
	OutstandingDebt(ctx context.Context) (decimal.Decimal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListPendingForClustering(ctx context.Context) ([]PendingOrderView, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Select("zone_code", "municipality", "reference_location").
		Where("status = ?", enums.OrderStatusPending).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	views := make([]PendingOrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, PendingOrderView{
			ZoneCode:          order.ZoneCode,
			Municipality:      order.Municipality,
			ReferenceLocation: order.ReferenceLocation,
		})
	}
	return views, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[enums.OrderStatus]int, error) {
	var rows []struct {
		Status enums.OrderStatus
		Total  int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OrderStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

func (r *repository) CountByType(ctx context.Context) (map[enums.OrderType]int, error) {
	var rows []struct {
		OrderType enums.OrderType
		Total     int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("order_type, COUNT(*) AS total").
		Group("order_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enums.OrderType]int, len(rows))
	for _, row := range rows {
		counts[row.OrderType] = row.Total
	}
	return counts, nil
}

func (r *repository) CountByBrigade(ctx context.Context) ([]BrigadeOrderCount, error) {
	var rows []BrigadeOrderCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.assigned_brigade_id AS brigade_id, brigades.code AS brigade_code, COUNT(*) AS total").
		Joins("JOIN brigades ON brigades.id = orders.assigned_brigade_id").
		Where("orders.assigned_brigade_id IS NOT NULL").
		Group("orders.assigned_brigade_id, brigades.code").
		Order("brigades.code ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) OutstandingDebt(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(amount_due), 0) AS total").
		Where("status IN ?", []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusAssigned,
			enums.OrderStatusInProgress,
		}).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}
