package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tg-moderation/internal/models"
)

// ViolationRepository handles database operations for ViolationRecord
type ViolationRepository struct {
	db *gorm.DB
}

// NewViolationRepository creates a new ViolationRepository
func NewViolationRepository(db *gorm.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// RecordViolation applies one violation inside a transaction. The row is
// locked for update so concurrent writers on the same key serialize.
func (r *ViolationRepository) RecordViolation(ctx context.Context, userID, groupID int64, now time.Time, window time.Duration) (models.ViolationRecord, error) {
	var record models.ViolationRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Limit(1).
			Find(&record)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			record = models.ViolationRecord{GroupID: groupID, UserID: userID}
			record.Advance(now, window)
			return tx.Create(&record).Error
		}

		record.Advance(now, window)
		return tx.Save(&record).Error
	})
	if err != nil {
		return models.ViolationRecord{}, wrap("record violation", err)
	}
	return record, nil
}

// GetCounts returns the record of a user in a group, or a zero record.
func (r *ViolationRepository) GetCounts(ctx context.Context, userID, groupID int64) (models.ViolationRecord, error) {
	var record models.ViolationRecord
	err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ViolationRecord{}, nil
	}
	if err != nil {
		return models.ViolationRecord{}, wrap("get counts", err)
	}
	return record, nil
}

// ClearViolations removes the record of a user in a group.
func (r *ViolationRepository) ClearViolations(ctx context.Context, userID, groupID int64) error {
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.ViolationRecord{}).Error
	return wrap("clear violations", err)
}

// ViolationStats returns how many users have a record in the group and the sum
// of their lifetime counts.
func (r *ViolationRepository) ViolationStats(ctx context.Context, groupID int64) (int64, int64, error) {
	var row struct {
		Users int64
		Total int64
	}
	err := r.db.WithContext(ctx).Model(&models.ViolationRecord{}).
		Select("COUNT(*) AS users, COALESCE(SUM(total_count), 0) AS total").
		Where("group_id = ?", groupID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, wrap("violation stats", err)
	}
	return row.Users, row.Total, nil
}
