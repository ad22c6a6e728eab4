package models

import "time"

// EventType enumerates the target lifecycle transitions that get an
// EventLog row.
type EventType string

const (
	EventStart  EventType = "start"
	EventStop   EventType = "stop"
	EventPause  EventType = "pause"
	EventResume EventType = "resume"
	EventDelete EventType = "delete"
)

// EventLog is an append-only record of lifecycle actions. TargetID is
// nullable for system-wide events that aren't about one target.
type EventLog struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	TargetID  *int      `json:"target_id" gorm:"column:target_id"`
	EventType EventType `json:"event_type" gorm:"column:event_type;not null"`
	Message   string    `json:"message" gorm:"column:message;type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
}

func (EventLog) TableName() string {
	return "event_logs"
}
