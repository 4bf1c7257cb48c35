package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting is a small key/value table for operational switches,
// e.g. the global pause flag. Values are JSON for forward compatibility.
type SystemSetting struct {
	Key         string         `gorm:"primaryKey;type:varchar(100)"`
	Value       datatypes.JSON `gorm:"type:jsonb;not null"`
	Description string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
