package models

// RateLimit mirrors the live sliding-window counters so operators can see
// the current windows. The authoritative counters are in memory.
type RateLimit struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	IP          string `gorm:"column:ip;index:idx_rate_key" json:"ip"`
	Action      string `gorm:"column:action;index:idx_rate_key" json:"action"`
	Count       int    `gorm:"column:count" json:"count"`
	WindowStart int64  `gorm:"column:window_start" json:"windowStart"`
}

func (RateLimit) TableName() string { return "rate_limits" }
