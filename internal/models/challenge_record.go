package models

import "time"

// ChallengeRecord is the pending human-verification challenge of a new
// member. Token identifies the issuance that armed the timeout.
type ChallengeRecord struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	GroupID   int64  `gorm:"primaryKey;autoIncrement:false"`
	MessageID int    `gorm:"not null"`
	Token     string `gorm:"size:36;not null"`
	IssuedAt  time.Time
}

func (ChallengeRecord) TableName() string {
	return "captcha_users"
}
