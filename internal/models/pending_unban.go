package models

import "time"

// PendingUnban lifts the temporary ban that stands in for a restriction in a
// basic group. Token identifies the restriction that scheduled it.
type PendingUnban struct {
	UserID  int64     `gorm:"primaryKey;autoIncrement:false"`
	GroupID int64     `gorm:"primaryKey;autoIncrement:false"`
	Token   string    `gorm:"size:36;not null"`
	UnbanAt time.Time `gorm:"not null;index"`
}
