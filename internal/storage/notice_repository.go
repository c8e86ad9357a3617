package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-moderation/internal/models"
)

// NoticeRepository handles database operations for PendingNotice
type NoticeRepository struct {
	db *gorm.DB
}

// NewNoticeRepository creates a new NoticeRepository
func NewNoticeRepository(db *gorm.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// PutNotice stores the live notice of a user, replacing any previous one.
func (r *NoticeRepository) PutNotice(ctx context.Context, notice models.PendingNotice) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&notice).Error
	return wrap("put notice", err)
}

// GetNotice returns the live notice of a user.
func (r *NoticeRepository) GetNotice(ctx context.Context, userID int64) (models.PendingNotice, bool, error) {
	var notice models.PendingNotice
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&notice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PendingNotice{}, false, nil
	}
	if err != nil {
		return models.PendingNotice{}, false, wrap("get notice", err)
	}
	return notice, true, nil
}

// DeleteNotice removes the live notice of a user. A non-empty token restricts
// the delete to that notice.
func (r *NoticeRepository) DeleteNotice(ctx context.Context, userID int64, token string) (bool, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if token != "" {
		q = q.Where("token = ?", token)
	}
	result := q.Delete(&models.PendingNotice{})
	if result.Error != nil {
		return false, wrap("delete notice", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListNotices returns every live notice.
func (r *NoticeRepository) ListNotices(ctx context.Context) ([]models.PendingNotice, error) {
	var notices []models.PendingNotice
	if err := r.db.WithContext(ctx).Find(&notices).Error; err != nil {
		return nil, wrap("list notices", err)
	}
	return notices, nil
}
