package models

import "time"

// BlockedUser records a permanent ban, either automatic or issued by an admin.
type BlockedUser struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	GroupID   int64  `gorm:"primaryKey;autoIncrement:false;index"`
	BlockedBy int64  `gorm:"not null;default:0"`
	Reason    string `gorm:"type:text"`
	BlockedAt time.Time
}
