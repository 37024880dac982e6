package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ises-energia/scrc-backend/pkg/enums"
)

// Brigade represents a field crew that can receive work orders.
type Brigade struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string              `gorm:"column:code;not null;uniqueIndex:ux_brigades_code"`
	Name        string              `gorm:"column:name;not null"`
	BrigadeType enums.BrigadeType   `gorm:"column:brigade_type;type:text;not null"`
	Status      enums.BrigadeStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CurrentZone string              `gorm:"column:current_zone"`

	// CapacityPerDay overrides the type-level capacity when positive.
	CapacityPerDay int            `gorm:"column:capacity_per_day;not null;default:0"`
	Members        pq.StringArray `gorm:"column:members;type:text[]"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Brigade) TableName() string {
	return "brigades"
}
