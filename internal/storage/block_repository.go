package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-moderation/internal/models"
)

// BlockRepository handles database operations for BlockedUser
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new BlockRepository
func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// AddBlocked records a permanent ban. A repeated ban overwrites the reason.
func (r *BlockRepository) AddBlocked(ctx context.Context, entry models.BlockedUser) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
	return wrap("add blocked", err)
}

// ListBlocked returns the permanently banned users of a group, newest first.
func (r *BlockRepository) ListBlocked(ctx context.Context, groupID int64) ([]models.BlockedUser, error) {
	var entries []models.BlockedUser
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("blocked_at DESC").Find(&entries).Error
	if err != nil {
		return nil, wrap("list blocked", err)
	}
	return entries, nil
}

// IsBlocked reports whether the user is permanently banned in the group.
func (r *BlockRepository) IsBlocked(ctx context.Context, userID, groupID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.BlockedUser{}).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		Count(&count).Error
	if err != nil {
		return false, wrap("is blocked", err)
	}
	return count > 0, nil
}
