package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-moderation/internal/config"
	"tg-moderation/internal/models"
)

// backend is the method set shared by the gorm repositories and MemoryStore.
type backend interface {
	ProvisionGroup(ctx context.Context, groupID int64, title string) error
	GroupProvisioned(ctx context.Context, groupID int64) (bool, error)
	ListGroups(ctx context.Context) ([]models.GroupInfo, error)
	RecordViolation(ctx context.Context, userID, groupID int64, now time.Time, window time.Duration) (models.ViolationRecord, error)
	GetCounts(ctx context.Context, userID, groupID int64) (models.ViolationRecord, error)
	ClearViolations(ctx context.Context, userID, groupID int64) error
	ViolationStats(ctx context.Context, groupID int64) (int64, int64, error)
	PutChallenge(ctx context.Context, record models.ChallengeRecord) error
	GetChallenge(ctx context.Context, userID, groupID int64) (models.ChallengeRecord, bool, error)
	DeleteChallenge(ctx context.Context, userID, groupID int64, token string) (bool, error)
	ListChallenges(ctx context.Context) ([]models.ChallengeRecord, error)
	PutNotice(ctx context.Context, notice models.PendingNotice) error
	GetNotice(ctx context.Context, userID int64) (models.PendingNotice, bool, error)
	DeleteNotice(ctx context.Context, userID int64, token string) (bool, error)
	ListNotices(ctx context.Context) ([]models.PendingNotice, error)
	AddBlocked(ctx context.Context, entry models.BlockedUser) error
	ListBlocked(ctx context.Context, groupID int64) ([]models.BlockedUser, error)
	IsBlocked(ctx context.Context, userID, groupID int64) (bool, error)
	PutUnban(ctx context.Context, unban models.PendingUnban) error
	DeleteUnban(ctx context.Context, userID, groupID int64, token string) (bool, error)
	ListUnbans(ctx context.Context) ([]models.PendingUnban, error)
}

// sqlBackend flattens Repositories into one value for the shared tests.
type sqlBackend struct {
	*GroupRepository
	*ViolationRepository
	*ChallengeRepository
	*NoticeRepository
	*BlockRepository
	*UnbanRepository
}

func openTestDB(t *testing.T) *Repositories {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "moderation.db"),
	}, "ERROR")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepositories(db)
}

func backends(t *testing.T) map[string]backend {
	repos := openTestDB(t)
	return map[string]backend{
		"sqlite": sqlBackend{repos.Groups, repos.Violations, repos.Challenges, repos.Notices, repos.Blocks, repos.Unbans},
		"memory": NewMemoryStore(),
	}
}

func TestRecordViolationDailyWindow(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			r, err := store.RecordViolation(ctx, 1, -100, start, 24*time.Hour)
			require.NoError(t, err)
			assert.Equal(t, 1, r.TotalCount)
			assert.Equal(t, 1, r.DailyCount)

			r, err = store.RecordViolation(ctx, 1, -100, start.Add(2*time.Hour), 24*time.Hour)
			require.NoError(t, err)
			assert.Equal(t, 2, r.TotalCount)
			assert.Equal(t, 2, r.DailyCount)

			r, err = store.RecordViolation(ctx, 1, -100, start.Add(24*time.Hour+time.Second), 24*time.Hour)
			require.NoError(t, err)
			assert.Equal(t, 3, r.TotalCount)
			assert.Equal(t, 1, r.DailyCount)

			got, err := store.GetCounts(ctx, 1, -100)
			require.NoError(t, err)
			assert.Equal(t, 3, got.TotalCount)
			assert.Equal(t, 1, got.DailyCount)

			// other groups are independent
			other, err := store.GetCounts(ctx, 1, -200)
			require.NoError(t, err)
			assert.Zero(t, other.TotalCount)
		})
	}
}

func TestRecordViolationConcurrent(t *testing.T) {
	ctx := context.Background()
	const n = 25

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.RecordViolation(ctx, 7, -100, time.Now(), 24*time.Hour)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := store.GetCounts(ctx, 7, -100)
			require.NoError(t, err)
			assert.Equal(t, n, got.TotalCount)
			assert.Equal(t, n, got.DailyCount)
		})
	}
}

func TestClearAndStats(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				_, err := store.RecordViolation(ctx, 1, -100, now, time.Hour)
				require.NoError(t, err)
			}
			_, err := store.RecordViolation(ctx, 2, -100, now, time.Hour)
			require.NoError(t, err)

			users, total, err := store.ViolationStats(ctx, -100)
			require.NoError(t, err)
			assert.Equal(t, int64(2), users)
			assert.Equal(t, int64(4), total)

			require.NoError(t, store.ClearViolations(ctx, 1, -100))
			got, err := store.GetCounts(ctx, 1, -100)
			require.NoError(t, err)
			assert.Zero(t, got.TotalCount)

			users, total, err = store.ViolationStats(ctx, -100)
			require.NoError(t, err)
			assert.Equal(t, int64(1), users)
			assert.Equal(t, int64(1), total)
		})
	}
}

func TestProvisionGroupIsIdempotent(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := store.GroupProvisioned(ctx, -100)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.ProvisionGroup(ctx, -100, "Chat"))
			require.NoError(t, store.ProvisionGroup(ctx, -100, "Renamed"))
			require.NoError(t, store.ProvisionGroup(ctx, -200, ""))

			ok, err = store.GroupProvisioned(ctx, -100)
			require.NoError(t, err)
			assert.True(t, ok)

			groups, err := store.ListGroups(ctx)
			require.NoError(t, err)
			require.Len(t, groups, 2)
			titles := map[int64]string{}
			for _, g := range groups {
				titles[g.GroupID] = g.Title
			}
			assert.Equal(t, "Chat", titles[-100])
			assert.Equal(t, "Group_200", titles[-200])
		})
	}
}

func TestChallengeTokenDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := models.ChallengeRecord{UserID: 5, GroupID: -100, MessageID: 10, Token: "a", IssuedAt: time.Now()}
			require.NoError(t, store.PutChallenge(ctx, rec))

			rec.MessageID = 11
			rec.Token = "b"
			require.NoError(t, store.PutChallenge(ctx, rec))

			got, ok, err := store.GetChallenge(ctx, 5, -100)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 11, got.MessageID)
			assert.Equal(t, "b", got.Token)

			deleted, err := store.DeleteChallenge(ctx, 5, -100, "a")
			require.NoError(t, err)
			assert.False(t, deleted, "stale token must not delete a newer issuance")

			list, err := store.ListChallenges(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			deleted, err = store.DeleteChallenge(ctx, 5, -100, "")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = store.DeleteChallenge(ctx, 5, -100, "")
			require.NoError(t, err)
			assert.False(t, deleted)

			_, ok, err = store.GetChallenge(ctx, 5, -100)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestNoticeIsKeyedByUser(t *testing.T) {
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := models.PendingNotice{UserID: 9, GroupID: -100, MessageID: 1, RestrictDuration: time.Minute, Token: "a", CreatedAt: time.Now()}
			second := models.PendingNotice{UserID: 9, GroupID: -200, MessageID: 2, RestrictDuration: time.Hour, Token: "b", CreatedAt: time.Now()}
			require.NoError(t, store.PutNotice(ctx, first))
			require.NoError(t, store.PutNotice(ctx, second))

			got, ok, err := store.GetNotice(ctx, 9)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(-200), got.GroupID)
			assert.Equal(t, time.Hour, got.RestrictDuration)

			deleted, err := store.DeleteNotice(ctx, 9, "a")
			require.NoError(t, err)
			assert.False(t, deleted)

			deleted, err = store.DeleteNotice(ctx, 9, "b")
			require.NoError(t, err)
			assert.True(t, deleted)

			list, err := store.ListNotices(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestPendingUnbans(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.PutUnban(ctx, models.PendingUnban{UserID: 1, GroupID: -100, Token: "a", UnbanAt: now.Add(time.Hour)}))
			require.NoError(t, store.PutUnban(ctx, models.PendingUnban{UserID: 2, GroupID: -100, Token: "x", UnbanAt: now.Add(time.Minute)}))
			// a newer restriction replaces the schedule of the same member
			require.NoError(t, store.PutUnban(ctx, models.PendingUnban{UserID: 1, GroupID: -100, Token: "b", UnbanAt: now.Add(2 * time.Hour)}))

			list, err := store.ListUnbans(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, int64(2), list[0].UserID)
			assert.Equal(t, "b", list[1].Token)
			assert.True(t, list[1].UnbanAt.Equal(now.Add(2*time.Hour)))

			deleted, err := store.DeleteUnban(ctx, 1, -100, "a")
			require.NoError(t, err)
			assert.False(t, deleted)

			deleted, err = store.DeleteUnban(ctx, 1, -100, "b")
			require.NoError(t, err)
			assert.True(t, deleted)

			deleted, err = store.DeleteUnban(ctx, 2, -100, "")
			require.NoError(t, err)
			assert.True(t, deleted)

			list, err = store.ListUnbans(ctx)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestBlockedUsers(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.AddBlocked(ctx, models.BlockedUser{UserID: 1, GroupID: -100, Reason: "old", BlockedAt: now.Add(-time.Hour)}))
			require.NoError(t, store.AddBlocked(ctx, models.BlockedUser{UserID: 2, GroupID: -100, BlockedBy: 77, Reason: "new", BlockedAt: now}))
			require.NoError(t, store.AddBlocked(ctx, models.BlockedUser{UserID: 3, GroupID: -200, BlockedAt: now}))

			list, err := store.ListBlocked(ctx, -100)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, int64(2), list[0].UserID)
			assert.Equal(t, int64(77), list[0].BlockedBy)

			blocked, err := store.IsBlocked(ctx, 3, -200)
			require.NoError(t, err)
			assert.True(t, blocked)

			blocked, err = store.IsBlocked(ctx, 3, -100)
			require.NoError(t, err)
			assert.False(t, blocked)
		})
	}
}

func TestResetEmptiesTables(t *testing.T) {
	ctx := context.Background()
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "reset.db")}, "ERROR")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	repos := NewRepositories(db)
	_, err = repos.Violations.RecordViolation(ctx, 1, -100, time.Now(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, Reset(db))
	got, err := repos.Violations.GetCounts(ctx, 1, -100)
	require.NoError(t, err)
	assert.Zero(t, got.TotalCount)
}

func TestStatusReportsTables(t *testing.T) {
	ctx := context.Background()
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "status.db")}, "ERROR")
	require.NoError(t, err)

	before, err := Status(db)
	require.NoError(t, err)
	require.Len(t, before, 6)
	for _, st := range before {
		assert.False(t, st.Exists, st.Table)
	}

	require.NoError(t, Migrate(db))
	require.NoError(t, NewRepositories(db).Groups.ProvisionGroup(ctx, -100, "g"))

	after, err := Status(db)
	require.NoError(t, err)
	byTable := map[string]TableStatus{}
	for _, st := range after {
		byTable[st.Table] = st
	}
	assert.True(t, byTable["moderated_groups"].Exists)
	assert.Equal(t, int64(1), byTable["moderated_groups"].Rows)
	assert.True(t, byTable["violations"].Exists)
	assert.Zero(t, byTable["violations"].Rows)
}

func TestStorageErrorWrapsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := wrap("put challenge", cause)

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "put challenge", se.Op)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, wrap("noop", nil))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, "INFO")
	assert.Error(t, err)
}
