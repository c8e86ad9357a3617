package moderation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-moderation/internal/models"
	"tg-moderation/internal/storage"
)

func newTestNotifier() (*Notifier, *fakeGateway, *fakeClock, *storage.MemoryStore) {
	clock := newFakeClock()
	gateway := newFakeGateway()
	store := storage.NewMemoryStore()
	n := NewNotifier(gateway, store, clock, clock, NewFormatter(models.LangUzbek, time.UTC))
	return n, gateway, clock, store
}

func restrictNotice(groupID int64, d time.Duration) NoticeRequest {
	return NoticeRequest{
		GroupID:     groupID,
		UserID:      testUser,
		DisplayName: "Ali",
		Record:      models.ViolationRecord{TotalCount: 7, DailyCount: 2},
		Action:      Action{Kind: ActionRestrict, Duration: d},
	}
}

func TestNoticeRetractedAfterDuration(t *testing.T) {
	n, gateway, clock, store := newTestNotifier()
	ctx := context.Background()

	id, err := n.PostViolationNotice(ctx, restrictNotice(testGroup, 5*time.Minute))
	require.NoError(t, err)

	text := gateway.sentTo(testGroup)[0].Text
	assert.True(t, strings.Contains(text, "24 soat ichida: 2-marta"), text)
	assert.True(t, strings.Contains(text, "Jami: 7-marta"), text)
	assert.True(t, strings.Contains(text, "5 daqiqa"), text)
	assert.True(t, strings.Contains(text, "09:05:00"), text)
	assert.Equal(t, 1, n.Pending())

	clock.Advance(4 * time.Minute)
	assert.False(t, gateway.wasDeleted(testGroup, id))

	clock.Advance(time.Minute)
	assert.True(t, gateway.wasDeleted(testGroup, id))
	assert.Zero(t, n.Pending())

	_, ok, err := store.GetNotice(ctx, testUser)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBanNoticeIsNotRetracted(t *testing.T) {
	n, gateway, clock, store := newTestNotifier()
	ctx := context.Background()

	req := restrictNotice(testGroup, 0)
	req.Action = Action{Kind: ActionBan}
	id, err := n.PostViolationNotice(ctx, req)
	require.NoError(t, err)
	assert.True(t, strings.Contains(gateway.sentTo(testGroup)[0].Text, "doimiy"))

	clock.Advance(48 * time.Hour)
	assert.False(t, gateway.wasDeleted(testGroup, id))

	list, err := store.ListNotices(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNewNoticeSupersedesOld(t *testing.T) {
	n, gateway, clock, store := newTestNotifier()
	ctx := context.Background()

	first, err := n.PostViolationNotice(ctx, restrictNotice(testGroup, time.Hour))
	require.NoError(t, err)
	second, err := n.PostViolationNotice(ctx, restrictNotice(-2002, 5*time.Minute))
	require.NoError(t, err)

	assert.True(t, gateway.wasDeleted(testGroup, first), "older notice is retracted at once")
	assert.Equal(t, 1, n.Pending())

	live, ok, err := store.GetNotice(ctx, testUser)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, live.MessageID)

	clock.Advance(5 * time.Minute)
	assert.True(t, gateway.wasDeleted(-2002, second))
}

func TestRetractionSwallowsMissingMessage(t *testing.T) {
	n, gateway, clock, store := newTestNotifier()
	ctx := context.Background()

	_, err := n.PostViolationNotice(ctx, restrictNotice(testGroup, time.Minute))
	require.NoError(t, err)

	gateway.failDelete = ErrMessageNotFound
	assert.NotPanics(t, func() { clock.Advance(time.Minute) })

	list, err := store.ListNotices(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostNoticeFailure(t *testing.T) {
	n, gateway, _, store := newTestNotifier()
	gateway.failSend = assert.AnError

	_, err := n.PostViolationNotice(context.Background(), restrictNotice(testGroup, time.Minute))
	require.Error(t, err)
	assert.Zero(t, n.Pending())

	list, err := store.ListNotices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRestoreRearmsRetractions(t *testing.T) {
	n, gateway, clock, store := newTestNotifier()
	ctx := context.Background()
	now := clock.Now()

	require.NoError(t, store.PutNotice(ctx, models.PendingNotice{
		UserID: 1, GroupID: testGroup, MessageID: 50, RestrictDuration: time.Hour, Token: "a", CreatedAt: now.Add(-30 * time.Minute),
	}))
	require.NoError(t, store.PutNotice(ctx, models.PendingNotice{
		UserID: 2, GroupID: testGroup, MessageID: 51, RestrictDuration: time.Minute, Token: "b", CreatedAt: now.Add(-time.Hour),
	}))

	count, err := n.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, gateway.wasDeleted(testGroup, 51))
	assert.False(t, gateway.wasDeleted(testGroup, 50))

	clock.Advance(30 * time.Minute)
	assert.True(t, gateway.wasDeleted(testGroup, 50))
}

func TestIsMessageNotFound(t *testing.T) {
	assert.True(t, IsMessageNotFound(&GatewayError{Op: "deleteMessage", Err: ErrMessageNotFound}))
	assert.True(t, IsMessageNotFound(assertErr("Bad Request: message to delete not found")))
	assert.False(t, IsMessageNotFound(assertErr("Forbidden: bot was kicked")))
	assert.False(t, IsMessageNotFound(nil))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
