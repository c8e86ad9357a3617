package models

import "time"

// PendingNotice is a group-visible moderation notice waiting to be retracted.
// A user has at most one live notice across all groups.
type PendingNotice struct {
	UserID           int64         `gorm:"primaryKey;autoIncrement:false"`
	GroupID          int64         `gorm:"not null;index"`
	MessageID        int           `gorm:"not null"`
	RestrictDuration time.Duration `gorm:"not null"`
	Token            string        `gorm:"size:36;not null"`
	CreatedAt        time.Time
}

// RetractAt is when the notice should disappear from the group.
func (n PendingNotice) RetractAt() time.Time {
	return n.CreatedAt.Add(n.RestrictDuration)
}
