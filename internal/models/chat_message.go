package models

// Flag reasons recorded on moderated rows.
const (
	FlagReasonSpam      = "spam"
	FlagReasonProfanity = "profanity"
)

// ChatMessageLog is the append-only log of attempted sends. Flagged rows
// were never relayed to the partner.
type ChatMessageLog struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	RoomID     string `gorm:"column:room_id;index" json:"roomId"`
	SenderIP   string `gorm:"column:sender_ip" json:"senderIp"`
	Content    string `gorm:"column:content" json:"content"`
	SentAt     int64  `gorm:"column:sent_at" json:"sentAt"`
	Flagged    int    `gorm:"column:flagged" json:"flagged"`
	FlagReason string `gorm:"column:flag_reason" json:"flagReason,omitempty"`
}

func (ChatMessageLog) TableName() string { return "chat_messages" }
