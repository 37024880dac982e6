package brigades

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/pkg/db/models"
)

// Repository is the read surface for brigade views. Brigade writes belong to
// the fleet administration system.
type Repository interface {
	ListBrigades(ctx context.Context) ([]models.Brigade, error)
	FindBrigade(ctx context.Context, id uuid.UUID) (*models.Brigade, error)
	CountAssignedOn(ctx context.Context, day time.Time) (map[uuid.UUID]int, error)
	CountOpenOn(ctx context.Context, day time.Time) (map[uuid.UUID]int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListBrigades(ctx context.Context) ([]models.Brigade, error) {
	var brigades []models.Brigade
	err := r.db.WithContext(ctx).
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

func (r *repository) CountAssignedOn(ctx context.Context, day time.Time) (map[uuid.UUID]int, error) {
	return r.countGrouped(ctx, day, nil)
}

func (r *repository) CountOpenOn(ctx context.Context, day time.Time) (map[uuid.UUID]int, error) {
	open := []string{"assigned", "in_progress"}
	return r.countGrouped(ctx, day, open)
}

func (r *repository) countGrouped(ctx context.Context, day time.Time, statuses []string) (map[uuid.UUID]int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("assigned_brigade_id, COUNT(*) AS total").
		Where("assigned_brigade_id IS NOT NULL").
		Where("assignment_date >= ? AND assignment_date < ?", start, end)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var rows []struct {
		AssignedBrigadeID uuid.UUID
		Total             int
	}
	if err := query.Group("assigned_brigade_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		counts[row.AssignedBrigadeID] = row.Total
	}
	return counts, nil
}
