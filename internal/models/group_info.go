package models

import (
	"fmt"
	"time"
)

// GroupInfo is a provisioned counter space: one row per monitored group.
type GroupInfo struct {
	GroupID   int64  `gorm:"primaryKey;autoIncrement:false"`
	Title     string `gorm:"size:255"`
	CreatedAt time.Time
}

func (GroupInfo) TableName() string {
	return "moderated_groups"
}

// DefaultGroupTitle labels groups whose title is unknown.
func DefaultGroupTitle(groupID int64) string {
	return fmt.Sprintf("Group_%d", abs(groupID))
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
