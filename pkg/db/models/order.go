package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ises-energia/scrc-backend/pkg/enums"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

// Order represents a suspension, cut or reconnection work order received
// from the commercial system.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber  string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	NIC          string            `gorm:"column:nic;not null"`
	OrderType    enums.OrderType   `gorm:"column:order_type;type:text;not null"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Priority     int               `gorm:"column:priority;not null;default:99"`
	Municipality string            `gorm:"column:municipality"`
	Neighborhood string            `gorm:"column:neighborhood"`
	Address      string            `gorm:"column:address"`

	// ZoneCode is the first letter of the strategic line; it selects the
	// eligibility matrix row together with ZoneKind.
	ZoneCode      string         `gorm:"column:zone_code"`
	ZoneKind      enums.ZoneKind `gorm:"column:zone_kind;type:text;not null;default:'urban'"`
	StrategicLine string         `gorm:"column:strategic_line"`

	// RequiredBrigadeType pins the order to one brigade type and bypasses
	// the matrix when set.
	RequiredBrigadeType *enums.BrigadeType `gorm:"column:required_brigade_type;type:text"`

	AmountDue         decimal.Decimal       `gorm:"column:amount_due;type:numeric(14,2);not null;default:0"`
	ReferenceLocation *types.GeographyPoint `gorm:"column:reference_location;type:geography(Point,4326)"`

	AssignedBrigadeID *uuid.UUID `gorm:"column:assigned_brigade_id;type:uuid"`
	AssignmentDate    *time.Time `gorm:"column:assignment_date"`
	StartedAt         *time.Time `gorm:"column:started_at"`
	CompletedAt       *time.Time `gorm:"column:completed_at"`

	ClosureResult            *string       `gorm:"column:closure_result"`
	ExecutionLat             *float64      `gorm:"column:execution_lat"`
	ExecutionLng             *float64      `gorm:"column:execution_lng"`
	ExecutionDurationMinutes *int          `gorm:"column:execution_duration_minutes"`
	AuditFlags               types.JSONMap `gorm:"column:audit_flags;type:jsonb;serializer:json"`
	IsFlagged                bool          `gorm:"column:is_flagged;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string {
	return "orders"
}
