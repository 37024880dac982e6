package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DispatchSetting stores a named rules document (capacity table, eligibility
// matrix) so dispatch behavior can change without a deploy.
type DispatchSetting struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key       string          `gorm:"column:key;not null;uniqueIndex:ux_dispatch_settings_key"`
	Value     json.RawMessage `gorm:"column:value;type:jsonb;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (DispatchSetting) TableName() string {
	return "dispatch_settings"
}
