package models

// DailyStat is the snapshot persisted at the local-day boundary.
type DailyStat struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Date         string `gorm:"column:date;uniqueIndex" json:"date"`
	MessageCount int    `gorm:"column:message_count" json:"messageCount"`
	UniqueIPs    int    `gorm:"column:unique_ips" json:"uniqueIps"`
	PeakRooms    int    `gorm:"column:peak_rooms" json:"peakRooms"`
}

func (DailyStat) TableName() string { return "daily_stats" }

// HourlyStat records the per-hour message delta, not the running daily
// total: the hourly flush subtracts what the previous flush already saw.
type HourlyStat struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Date         string `gorm:"column:date;index" json:"date"`
	Hour         int    `gorm:"column:hour" json:"hour"`
	MessageCount int    `gorm:"column:message_count" json:"messageCount"`
}

func (HourlyStat) TableName() string { return "hourly_stats" }
