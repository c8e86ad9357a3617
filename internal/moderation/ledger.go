package moderation

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/models"
)

const provisionedCacheSize = 4096

type memberKey struct {
	UserID  int64
	GroupID int64
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	locks *xsync.MapOf[memberKey, *refLock]
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: xsync.NewMapOf[memberKey, *refLock]()}
}

func (k *keyedMutex) Lock(key memberKey) func() {
	l, _ := k.locks.Compute(key, func(old *refLock, loaded bool) (*refLock, bool) {
		if !loaded {
			old = &refLock{}
		}
		old.refs++
		return old, false
	})
	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		k.locks.Compute(key, func(old *refLock, loaded bool) (*refLock, bool) {
			if !loaded {
				return old, true
			}
			old.refs--
			return old, old.refs == 0
		})
	}
}

// Ledger owns the violation counters. Records for the same (user, group) are
// serialized in process on top of the store's own atomicity.
type Ledger struct {
	violations  ViolationStore
	groups      GroupStore
	clock       Clock
	window      time.Duration
	locks       *keyedMutex
	provisioned *lru.Cache[int64, struct{}]
}

// NewLedger creates a ledger whose daily count resets after window.
func NewLedger(violations ViolationStore, groups GroupStore, clock Clock, window time.Duration) *Ledger {
	cache, err := lru.New[int64, struct{}](provisionedCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	return &Ledger{
		violations:  violations,
		groups:      groups,
		clock:       clock,
		window:      window,
		locks:       newKeyedMutex(),
		provisioned: cache,
	}
}

// EnsureGroup provisions the counter space of a group. It is idempotent.
func (l *Ledger) EnsureGroup(ctx context.Context, groupID int64, label string) error {
	if l.provisioned.Contains(groupID) {
		return nil
	}

	ok, err := l.groups.GroupProvisioned(ctx, groupID)
	if err != nil {
		return err
	}
	if !ok {
		if err := l.groups.ProvisionGroup(ctx, groupID, label); err != nil {
			return err
		}
		logger.Infof("Provisioned counter space for group %d (%s)", groupID, label)
	}

	l.provisioned.Add(groupID, struct{}{})
	return nil
}

// Record registers one violation and returns the updated counters.
func (l *Ledger) Record(ctx context.Context, userID, groupID int64, label string) (models.ViolationRecord, error) {
	if err := l.EnsureGroup(ctx, groupID, label); err != nil {
		return models.ViolationRecord{}, err
	}

	unlock := l.locks.Lock(memberKey{UserID: userID, GroupID: groupID})
	defer unlock()

	return l.violations.RecordViolation(ctx, userID, groupID, l.clock.Now(), l.window)
}

// Get returns the counters without mutating them. The zero record means no
// violations.
func (l *Ledger) Get(ctx context.Context, userID, groupID int64) (models.ViolationRecord, error) {
	return l.violations.GetCounts(ctx, userID, groupID)
}

// Clear drops the record so a returning user starts clean.
func (l *Ledger) Clear(ctx context.Context, userID, groupID int64) error {
	unlock := l.locks.Lock(memberKey{UserID: userID, GroupID: groupID})
	defer unlock()

	return l.violations.ClearViolations(ctx, userID, groupID)
}

// Stats returns the number of recorded users and their summed totals.
func (l *Ledger) Stats(ctx context.Context, groupID int64) (int64, int64, error) {
	return l.violations.ViolationStats(ctx, groupID)
}
