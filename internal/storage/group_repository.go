package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-moderation/internal/models"
)

// GroupRepository handles database operations for GroupInfo
type GroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository creates a new GroupRepository
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ProvisionGroup creates the counter space of a group. Existing groups are
// left untouched.
func (r *GroupRepository) ProvisionGroup(ctx context.Context, groupID int64, title string) error {
	if title == "" {
		title = models.DefaultGroupTitle(groupID)
	}
	group := models.GroupInfo{GroupID: groupID, Title: title, CreatedAt: time.Now()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&group).Error
	return wrap("provision group", err)
}

// GroupProvisioned reports whether the group has a counter space.
func (r *GroupRepository) GroupProvisioned(ctx context.Context, groupID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.GroupInfo{}).Where("group_id = ?", groupID).Count(&count).Error
	if err != nil {
		return false, wrap("group provisioned", err)
	}
	return count > 0, nil
}

// ListGroups returns every provisioned group.
func (r *GroupRepository) ListGroups(ctx context.Context) ([]models.GroupInfo, error) {
	var groups []models.GroupInfo
	if err := r.db.WithContext(ctx).Order("created_at").Find(&groups).Error; err != nil {
		return nil, wrap("list groups", err)
	}
	return groups, nil
}
