package models

import "time"

// MonitorTarget is a single IP endpoint under active or historical
// observation. Rows are never hard-deleted; DeleteTarget marks them
// permanently stopped so history (samples, events) survives.
type MonitorTarget struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	IP        string    `json:"ip" gorm:"column:ip;uniqueIndex;not null"`
	Frequency int       `json:"frequency_seconds" gorm:"column:frequency_seconds;not null;default:1"`
	IsActive  bool      `json:"is_active" gorm:"column:is_active;not null;default:true;index"`
	Deleted   bool      `json:"-" gorm:"column:deleted;not null;default:false"`
	URL       string    `json:"url,omitempty" gorm:"column:url"`
	Notes     string    `json:"notes,omitempty" gorm:"column:notes;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

func (MonitorTarget) TableName() string {
	return "monitor_targets"
}
