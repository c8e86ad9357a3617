package storage

import (
	"context"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"tg-moderation/internal/models"
)

type memberKey struct {
	userID  int64
	groupID int64
}

// MemoryStore keeps moderation state in process memory. It is used when the
// database is disabled and in tests; state does not survive a restart.
type MemoryStore struct {
	groups     *xsync.MapOf[int64, models.GroupInfo]
	violations *xsync.MapOf[memberKey, models.ViolationRecord]
	challenges *xsync.MapOf[memberKey, models.ChallengeRecord]
	notices    *xsync.MapOf[int64, models.PendingNotice]
	blocked    *xsync.MapOf[memberKey, models.BlockedUser]
	unbans     *xsync.MapOf[memberKey, models.PendingUnban]
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		groups:     xsync.NewMapOf[int64, models.GroupInfo](),
		violations: xsync.NewMapOf[memberKey, models.ViolationRecord](),
		challenges: xsync.NewMapOf[memberKey, models.ChallengeRecord](),
		notices:    xsync.NewMapOf[int64, models.PendingNotice](),
		blocked:    xsync.NewMapOf[memberKey, models.BlockedUser](),
		unbans:     xsync.NewMapOf[memberKey, models.PendingUnban](),
	}
}

func (s *MemoryStore) ProvisionGroup(_ context.Context, groupID int64, title string) error {
	if title == "" {
		title = models.DefaultGroupTitle(groupID)
	}
	s.groups.LoadOrStore(groupID, models.GroupInfo{GroupID: groupID, Title: title, CreatedAt: time.Now()})
	return nil
}

func (s *MemoryStore) GroupProvisioned(_ context.Context, groupID int64) (bool, error) {
	_, ok := s.groups.Load(groupID)
	return ok, nil
}

func (s *MemoryStore) ListGroups(_ context.Context) ([]models.GroupInfo, error) {
	var groups []models.GroupInfo
	s.groups.Range(func(_ int64, g models.GroupInfo) bool {
		groups = append(groups, g)
		return true
	})
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

// RecordViolation updates the record atomically per key.
func (s *MemoryStore) RecordViolation(_ context.Context, userID, groupID int64, now time.Time, window time.Duration) (models.ViolationRecord, error) {
	record, _ := s.violations.Compute(memberKey{userID, groupID}, func(old models.ViolationRecord, loaded bool) (models.ViolationRecord, bool) {
		if !loaded {
			old = models.ViolationRecord{GroupID: groupID, UserID: userID}
		}
		old.Advance(now, window)
		return old, false
	})
	return record, nil
}

func (s *MemoryStore) GetCounts(_ context.Context, userID, groupID int64) (models.ViolationRecord, error) {
	record, _ := s.violations.Load(memberKey{userID, groupID})
	return record, nil
}

func (s *MemoryStore) ClearViolations(_ context.Context, userID, groupID int64) error {
	s.violations.Delete(memberKey{userID, groupID})
	return nil
}

func (s *MemoryStore) ViolationStats(_ context.Context, groupID int64) (int64, int64, error) {
	var users, total int64
	s.violations.Range(func(k memberKey, r models.ViolationRecord) bool {
		if k.groupID == groupID {
			users++
			total += int64(r.TotalCount)
		}
		return true
	})
	return users, total, nil
}

func (s *MemoryStore) PutChallenge(_ context.Context, record models.ChallengeRecord) error {
	s.challenges.Store(memberKey{record.UserID, record.GroupID}, record)
	return nil
}

func (s *MemoryStore) GetChallenge(_ context.Context, userID, groupID int64) (models.ChallengeRecord, bool, error) {
	record, ok := s.challenges.Load(memberKey{userID, groupID})
	return record, ok, nil
}

func (s *MemoryStore) DeleteChallenge(_ context.Context, userID, groupID int64, token string) (bool, error) {
	deleted := false
	s.challenges.Compute(memberKey{userID, groupID}, func(old models.ChallengeRecord, loaded bool) (models.ChallengeRecord, bool) {
		if !loaded {
			return old, true
		}
		if token != "" && old.Token != token {
			return old, false
		}
		deleted = true
		return old, true
	})
	return deleted, nil
}

func (s *MemoryStore) ListChallenges(_ context.Context) ([]models.ChallengeRecord, error) {
	var records []models.ChallengeRecord
	s.challenges.Range(func(_ memberKey, r models.ChallengeRecord) bool {
		records = append(records, r)
		return true
	})
	return records, nil
}

func (s *MemoryStore) PutNotice(_ context.Context, notice models.PendingNotice) error {
	s.notices.Store(notice.UserID, notice)
	return nil
}

func (s *MemoryStore) GetNotice(_ context.Context, userID int64) (models.PendingNotice, bool, error) {
	notice, ok := s.notices.Load(userID)
	return notice, ok, nil
}

func (s *MemoryStore) DeleteNotice(_ context.Context, userID int64, token string) (bool, error) {
	deleted := false
	s.notices.Compute(userID, func(old models.PendingNotice, loaded bool) (models.PendingNotice, bool) {
		if !loaded {
			return old, true
		}
		if token != "" && old.Token != token {
			return old, false
		}
		deleted = true
		return old, true
	})
	return deleted, nil
}

func (s *MemoryStore) ListNotices(_ context.Context) ([]models.PendingNotice, error) {
	var notices []models.PendingNotice
	s.notices.Range(func(_ int64, n models.PendingNotice) bool {
		notices = append(notices, n)
		return true
	})
	return notices, nil
}

func (s *MemoryStore) AddBlocked(_ context.Context, entry models.BlockedUser) error {
	s.blocked.Store(memberKey{entry.UserID, entry.GroupID}, entry)
	return nil
}

func (s *MemoryStore) ListBlocked(_ context.Context, groupID int64) ([]models.BlockedUser, error) {
	var entries []models.BlockedUser
	s.blocked.Range(func(k memberKey, e models.BlockedUser) bool {
		if k.groupID == groupID {
			entries = append(entries, e)
		}
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].BlockedAt.After(entries[j].BlockedAt) })
	return entries, nil
}

func (s *MemoryStore) IsBlocked(_ context.Context, userID, groupID int64) (bool, error) {
	_, ok := s.blocked.Load(memberKey{userID, groupID})
	return ok, nil
}

func (s *MemoryStore) PutUnban(_ context.Context, unban models.PendingUnban) error {
	s.unbans.Store(memberKey{unban.UserID, unban.GroupID}, unban)
	return nil
}

func (s *MemoryStore) DeleteUnban(_ context.Context, userID, groupID int64, token string) (bool, error) {
	deleted := false
	s.unbans.Compute(memberKey{userID, groupID}, func(old models.PendingUnban, loaded bool) (models.PendingUnban, bool) {
		if !loaded {
			return old, true
		}
		if token != "" && old.Token != token {
			return old, false
		}
		deleted = true
		return old, true
	})
	return deleted, nil
}

func (s *MemoryStore) ListUnbans(_ context.Context) ([]models.PendingUnban, error) {
	var unbans []models.PendingUnban
	s.unbans.Range(func(_ memberKey, u models.PendingUnban) bool {
		unbans = append(unbans, u)
		return true
	})
	sort.Slice(unbans, func(i, j int) bool { return unbans[i].UnbanAt.Before(unbans[j].UnbanAt) })
	return unbans, nil
}
