package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-moderation/internal/models"
)

// ChallengeRepository handles database operations for ChallengeRecord
type ChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository creates a new ChallengeRepository
func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// PutChallenge inserts the record or replaces the pending one for the same key.
func (r *ChallengeRepository) PutChallenge(ctx context.Context, record models.ChallengeRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error
	return wrap("put challenge", err)
}

// GetChallenge returns the pending challenge of a user in a group.
func (r *ChallengeRepository) GetChallenge(ctx context.Context, userID, groupID int64) (models.ChallengeRecord, bool, error) {
	var record models.ChallengeRecord
	err := r.db.WithContext(ctx).Where("user_id = ? AND group_id = ?", userID, groupID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ChallengeRecord{}, false, nil
	}
	if err != nil {
		return models.ChallengeRecord{}, false, wrap("get challenge", err)
	}
	return record, true, nil
}

// DeleteChallenge removes the pending challenge and reports whether a row was
// removed. A non-empty token restricts the delete to that issuance.
func (r *ChallengeRepository) DeleteChallenge(ctx context.Context, userID, groupID int64, token string) (bool, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND group_id = ?", userID, groupID)
	if token != "" {
		q = q.Where("token = ?", token)
	}
	result := q.Delete(&models.ChallengeRecord{})
	if result.Error != nil {
		return false, wrap("delete challenge", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListChallenges returns every pending challenge.
func (r *ChallengeRepository) ListChallenges(ctx context.Context) ([]models.ChallengeRecord, error) {
	var records []models.ChallengeRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, wrap("list challenges", err)
	}
	return records, nil
}
