package models

// Appeal statuses. pending is the only non-terminal state.
const (
	AppealPending  = "pending"
	AppealApproved = "approved"
	AppealRejected = "rejected"
)

// BanAppeal is an end-user request to lift a ban. At most one pending
// appeal may exist per source address.
type BanAppeal struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	IP          string `gorm:"column:ip;index;not null" json:"ip"`
	Email       string `gorm:"column:email" json:"email"`
	Reason      string `gorm:"column:reason" json:"reason"`
	Status      string `gorm:"column:status;index;default:pending" json:"status"`
	SubmittedAt int64  `gorm:"column:submitted_at" json:"submittedAt"`
	ReviewedAt  int64  `gorm:"column:reviewed_at" json:"reviewedAt,omitempty"`
	Reviewer    string `gorm:"column:reviewer" json:"reviewer,omitempty"`
	Notes       string `gorm:"column:notes" json:"notes,omitempty"`
}

func (BanAppeal) TableName() string { return "ban_appeals" }
