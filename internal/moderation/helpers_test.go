package moderation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tg-moderation/internal/models"
	"tg-moderation/internal/storage"
)

// fakeClock is a manual clock. Timers fire synchronously inside Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward by d, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at.Equal(due[j].at) {
				return due[i].seq < due[j].seq
			}
			return due[i].at.Before(due[j].at)
		})
		next := due[0]
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Active returns the number of timers that have not fired or been stopped.
func (c *fakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type sentMessage struct {
	ID int
	OutgoingMessage
}

type deletedMessage struct {
	ChatID    int64
	MessageID int
}

type memberCall struct {
	ChatID int64
	UserID int64
	Until  time.Time
}

// fakeGateway records every call. Setting a fail* field makes the matching
// call return that error.
type fakeGateway struct {
	mu         sync.Mutex
	nextID     int
	sent       []sentMessage
	deleted    []deletedMessage
	bans       []memberCall
	restricts  []memberCall
	unbans     []memberCall
	chatKinds  map[int64]ChatKind
	statuses   map[int64]MemberStatus
	admins     map[int64][]int64
	failSend   error
	failDelete error
	failBan    error
	failRestr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextID:    1000,
		chatKinds: map[int64]ChatKind{},
		statuses:  map[int64]MemberStatus{},
		admins:    map[int64][]int64{},
	}
}

func (g *fakeGateway) SendMessage(_ context.Context, msg OutgoingMessage) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSend != nil {
		return 0, &GatewayError{Op: "sendMessage", ChatID: msg.ChatID, Err: g.failSend}
	}
	g.nextID++
	g.sent = append(g.sent, sentMessage{ID: g.nextID, OutgoingMessage: msg})
	return g.nextID, nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failDelete != nil {
		return &GatewayError{Op: "deleteMessage", ChatID: chatID, Err: g.failDelete}
	}
	g.deleted = append(g.deleted, deletedMessage{ChatID: chatID, MessageID: messageID})
	return nil
}

func (g *fakeGateway) BanMember(_ context.Context, chatID, userID int64, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failBan != nil {
		return &GatewayError{Op: "banChatMember", ChatID: chatID, Err: g.failBan}
	}
	g.bans = append(g.bans, memberCall{ChatID: chatID, UserID: userID, Until: until})
	return nil
}

func (g *fakeGateway) RestrictMember(_ context.Context, chatID, userID int64, until time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRestr != nil {
		return &GatewayError{Op: "restrictChatMember", ChatID: chatID, Err: g.failRestr}
	}
	g.restricts = append(g.restricts, memberCall{ChatID: chatID, UserID: userID, Until: until})
	return nil
}

func (g *fakeGateway) UnbanMember(_ context.Context, chatID, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unbans = append(g.unbans, memberCall{ChatID: chatID, UserID: userID})
	return nil
}

func (g *fakeGateway) GetMemberStatus(_ context.Context, chatID, userID int64) (MemberStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statuses[userID], nil
}

func (g *fakeGateway) GetAdministrators(_ context.Context, chatID int64) ([]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.admins[chatID], nil
}

func (g *fakeGateway) GetChatKind(_ context.Context, chatID int64) (ChatKind, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if kind, ok := g.chatKinds[chatID]; ok {
		return kind, nil
	}
	return ChatSupergroup, nil
}

func (g *fakeGateway) sentTo(chatID int64) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMessage
	for _, m := range g.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (g *fakeGateway) wasDeleted(chatID int64, messageID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.deleted {
		if d.ChatID == chatID && d.MessageID == messageID {
			return true
		}
	}
	return false
}

func (g *fakeGateway) banCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.bans)
}

// failingViolations fails every counter operation.
type failingViolations struct {
	*storage.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (failingViolations) RecordViolation(context.Context, int64, int64, time.Time, time.Duration) (models.ViolationRecord, error) {
	return models.ViolationRecord{}, &storage.StorageError{Op: "record violation", Err: errDiskFull}
}

// failingUnbans fails every unban write.
type failingUnbans struct {
	*storage.MemoryStore
}

func (failingUnbans) PutUnban(context.Context, models.PendingUnban) error {
	return &storage.StorageError{Op: "put unban", Err: errDiskFull}
}

func (failingUnbans) DeleteUnban(context.Context, int64, int64, string) (bool, error) {
	return false, &storage.StorageError{Op: "delete unban", Err: errDiskFull}
}

const (
	testGroup = int64(-1001)
	testUser  = int64(42)
	testBot   = int64(7)
)

var testLadder = []time.Duration{time.Minute, 5 * time.Minute, 30 * time.Minute, time.Hour}

type testEnv struct {
	engine  *Engine
	gateway *fakeGateway
	clock   *fakeClock
	store   *storage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	return newTestEnvWithStores(t, store, MemoryStores(store))
}

func newTestEnvWithStores(t *testing.T, store *storage.MemoryStore, stores Stores) *testEnv {
	t.Helper()
	lexicon, err := NewLexicon([]string{"jinni", "o'g'ri", "ahmoq"})
	require.NoError(t, err)
	policy, err := NewPolicy(testLadder, 5)
	require.NoError(t, err)

	clock := newFakeClock()
	gateway := newFakeGateway()
	engine, err := NewEngine(Options{
		Lexicon:         lexicon,
		Policy:          policy,
		Stores:          stores,
		Gateway:         gateway,
		Clock:           clock,
		Scheduler:       clock,
		Formatter:       NewFormatter(models.LangUzbek, time.UTC),
		DailyWindow:     24 * time.Hour,
		ChallengeWindow: 30 * time.Minute,
		BotID:           testBot,
	})
	require.NoError(t, err)
	t.Cleanup(engine.Stop)

	return &testEnv{engine: engine, gateway: gateway, clock: clock, store: store}
}

func badMessage(id int) IncomingMessage {
	return IncomingMessage{
		ChatID:      testGroup,
		ChatKind:    ChatSupergroup,
		ChatTitle:   "Test chat",
		MessageID:   id,
		UserID:      testUser,
		DisplayName: "Ali",
		Text:        "sen JINNI ekansan",
	}
}
