package storage

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-moderation/internal/models"
)

// UnbanRepository handles database operations for PendingUnban
type UnbanRepository struct {
	db *gorm.DB
}

// NewUnbanRepository creates a new UnbanRepository
func NewUnbanRepository(db *gorm.DB) *UnbanRepository {
	return &UnbanRepository{db: db}
}

// PutUnban stores the scheduled unban of a user, replacing any previous one.
func (r *UnbanRepository) PutUnban(ctx context.Context, unban models.PendingUnban) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&unban).Error
	return wrap("put unban", err)
}

// DeleteUnban removes the scheduled unban and reports whether a row was
// removed. A non-empty token restricts the delete to that schedule.
func (r *UnbanRepository) DeleteUnban(ctx context.Context, userID, groupID int64, token string) (bool, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND group_id = ?", userID, groupID)
	if token != "" {
		q = q.Where("token = ?", token)
	}
	result := q.Delete(&models.PendingUnban{})
	if result.Error != nil {
		return false, wrap("delete unban", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListUnbans returns every scheduled unban.
func (r *UnbanRepository) ListUnbans(ctx context.Context) ([]models.PendingUnban, error) {
	var unbans []models.PendingUnban
	if err := r.db.WithContext(ctx).Order("unban_at").Find(&unbans).Error; err != nil {
		return nil, wrap("list unbans", err)
	}
	return unbans, nil
}
