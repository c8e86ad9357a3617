package moderation

import (
	"context"
	"time"

	"tg-moderation/internal/models"
	"tg-moderation/internal/storage"
)

// ViolationStore persists violation counters. RecordViolation must be atomic
// per (user, group).
type ViolationStore interface {
	RecordViolation(ctx context.Context, userID, groupID int64, now time.Time, window time.Duration) (models.ViolationRecord, error)
	GetCounts(ctx context.Context, userID, groupID int64) (models.ViolationRecord, error)
	ClearViolations(ctx context.Context, userID, groupID int64) error
	ViolationStats(ctx context.Context, groupID int64) (users, total int64, err error)
}

// GroupStore persists the per-group counter spaces.
type GroupStore interface {
	ProvisionGroup(ctx context.Context, groupID int64, title string) error
	GroupProvisioned(ctx context.Context, groupID int64) (bool, error)
	ListGroups(ctx context.Context) ([]models.GroupInfo, error)
}

// ChallengeStore persists pending challenges. A non-empty token limits
// DeleteChallenge to that issuance.
type ChallengeStore interface {
	PutChallenge(ctx context.Context, record models.ChallengeRecord) error
	GetChallenge(ctx context.Context, userID, groupID int64) (models.ChallengeRecord, bool, error)
	DeleteChallenge(ctx context.Context, userID, groupID int64, token string) (bool, error)
	ListChallenges(ctx context.Context) ([]models.ChallengeRecord, error)
}

// NoticeStore persists notices awaiting retraction, one per user.
type NoticeStore interface {
	PutNotice(ctx context.Context, notice models.PendingNotice) error
	GetNotice(ctx context.Context, userID int64) (models.PendingNotice, bool, error)
	DeleteNotice(ctx context.Context, userID int64, token string) (bool, error)
	ListNotices(ctx context.Context) ([]models.PendingNotice, error)
}

// BlockStore persists permanent bans.
type BlockStore interface {
	AddBlocked(ctx context.Context, entry models.BlockedUser) error
	ListBlocked(ctx context.Context, groupID int64) ([]models.BlockedUser, error)
	IsBlocked(ctx context.Context, userID, groupID int64) (bool, error)
}

// UnbanStore persists the unbans that end basic-group restrictions. A
// non-empty token limits DeleteUnban to that schedule.
type UnbanStore interface {
	PutUnban(ctx context.Context, unban models.PendingUnban) error
	DeleteUnban(ctx context.Context, userID, groupID int64, token string) (bool, error)
	ListUnbans(ctx context.Context) ([]models.PendingUnban, error)
}

// Stores groups the persistence the engine depends on.
type Stores struct {
	Violations ViolationStore
	Groups     GroupStore
	Challenges ChallengeStore
	Notices    NoticeStore
	Blocks     BlockStore
	Unbans     UnbanStore
}

// DatabaseStores backs every store with the gorm repositories.
func DatabaseStores(repos *storage.Repositories) Stores {
	return Stores{
		Violations: repos.Violations,
		Groups:     repos.Groups,
		Challenges: repos.Challenges,
		Notices:    repos.Notices,
		Blocks:     repos.Blocks,
		Unbans:     repos.Unbans,
	}
}

// MemoryStores backs every store with one in-process store.
func MemoryStores(m *storage.MemoryStore) Stores {
	return Stores{
		Violations: m,
		Groups:     m,
		Challenges: m,
		Notices:    m,
		Blocks:     m,
		Unbans:     m,
	}
}
