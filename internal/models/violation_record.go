package models

import "time"

// ViolationRecord holds the lexicon-violation counters of one user in one
// group. DailyCount is reset independently of TotalCount when the daily
// window has elapsed.
type ViolationRecord struct {
	GroupID              int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID               int64 `gorm:"primaryKey;autoIncrement:false"`
	TotalCount           int   `gorm:"not null;default:0"`
	DailyCount           int   `gorm:"not null;default:0"`
	LastViolationAt      time.Time
	DailyWindowStartedAt time.Time
}

func (ViolationRecord) TableName() string {
	return "violations"
}

// Advance applies one violation at now. A zero record is treated as absent
// and starts both counters at 1.
func (r *ViolationRecord) Advance(now time.Time, window time.Duration) {
	if r.TotalCount == 0 {
		r.TotalCount = 1
		r.DailyCount = 1
		r.LastViolationAt = now
		r.DailyWindowStartedAt = now
		return
	}

	if now.Sub(r.DailyWindowStartedAt) >= window {
		r.DailyCount = 1
		r.DailyWindowStartedAt = now
	} else {
		r.DailyCount++
	}
	r.TotalCount++
	r.LastViolationAt = now
}
