package models

// ChatSession is the durable record of one pairing (a room). Appended when
// the room is created, closed when either partner leaves.
type ChatSession struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	RoomID       string `gorm:"column:room_id;uniqueIndex;not null" json:"roomId"`
	Session1ID   string `gorm:"column:session1_id" json:"session1Id"`
	Session2ID   string `gorm:"column:session2_id" json:"session2Id"`
	IP1          string `gorm:"column:ip1" json:"ip1"`
	IP2          string `gorm:"column:ip2" json:"ip2"`
	StartedAt    int64  `gorm:"column:started_at" json:"startedAt"`
	EndedAt      int64  `gorm:"column:ended_at" json:"endedAt"`
	MessageCount int    `gorm:"column:message_count" json:"messageCount"`
	IsActive     int    `gorm:"column:is_active;index" json:"isActive"`
}

func (ChatSession) TableName() string { return "chat_sessions" }
