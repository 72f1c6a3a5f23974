// Package gorm provides a PostgreSQL key-value store for soilsense built on GORM.
package gorm

import (
	"time"

	"gorm.io/gorm"
)

// KVEntry is one persisted key-value pair.
type KVEntry struct {
	Key            string `gorm:"primaryKey;type:text"`
	Value          string `gorm:"type:text;not null"`
	UpdatedAt      string `gorm:"not null"`
	UpdatedAtEpoch int64  `gorm:"index:idx_kv_entries_updated,sort:desc;not null"`
}

func (KVEntry) TableName() string { return "kv_entries" }

// BeforeSave stamps the update time.
func (e *KVEntry) BeforeSave(tx *gorm.DB) error {
	now := time.Now()
	e.UpdatedAt = now.Format(time.RFC3339)
	e.UpdatedAtEpoch = now.UnixMilli()
	return nil
}
