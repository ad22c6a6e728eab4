package models

import "time"

// PingSample is one raw probe outcome. Primary key (time, target_id) makes
// re-insertion of the same probe a no-op, which is what lets the scheduler
// retry a failed write without risking duplicates (I3, at-least-once
// delivery per spec's Non-goals).
type PingSample struct {
	Time       time.Time `json:"time" gorm:"column:time;primaryKey"`
	TargetID   int       `json:"target_id" gorm:"column:target_id;primaryKey"`
	LatencyMs  *float64  `json:"latency_ms" gorm:"column:latency_ms"`
	Hops       *int      `json:"hops" gorm:"column:hops"`
	PacketLoss bool      `json:"packet_loss" gorm:"column:packet_loss;not null;default:false"`
}

func (PingSample) TableName() string {
	return "ping_logs"
}

// Resolution names the bucket level a read is served from.
type Resolution string

const (
	ResolutionRaw    Resolution = "raw"
	ResolutionMinute Resolution = "minute"
	ResolutionHour   Resolution = "hour"
	ResolutionAuto   Resolution = "auto"
)

// AggregateRow is the common shape of a ping_minute/ping_hour row, used
// wherever the store and analytics engine don't care which level
// they're reading.
type AggregateRow struct {
	Bucket     time.Time `gorm:"column:bucket"`
	TargetID   int       `gorm:"column:target_id"`
	AvgLatency *float64  `gorm:"column:avg_latency"`
	MinLatency *float64  `gorm:"column:min_latency"`
	MaxLatency *float64  `gorm:"column:max_latency"`
	LossCount  int       `gorm:"column:loss_count"`
	Samples    int       `gorm:"column:samples"`
}
