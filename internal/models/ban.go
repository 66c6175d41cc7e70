package models

// BanRecord is a source-address ban. One row per address.
type BanRecord struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	IP       string `gorm:"column:ip;uniqueIndex;not null" json:"ip"`
	Reason   string `gorm:"column:reason" json:"reason"`
	BannedAt int64  `gorm:"column:banned_at" json:"bannedAt"`
	BannedBy string `gorm:"column:banned_by" json:"bannedBy"`
}

func (BanRecord) TableName() string { return "banned_ips" }
