package service

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"tg-moderation/internal/logger"
	"tg-moderation/internal/moderation"
)

const (
	adminCacheSize = 1024
	adminCacheTTL  = 5 * time.Minute
)

// AdminLister is the part of the gateway the cache needs.
type AdminLister interface {
	GetAdministrators(ctx context.Context, chatID int64) ([]int64, error)
}

// AdminCache keeps each group's administrator list for a few minutes so that
// command checks do not hit the platform on every message.
type AdminCache struct {
	source AdminLister
	cache  *expirable.LRU[int64, []int64]
}

var _ AdminLister = (moderation.Gateway)(nil)

func NewAdminCache(source AdminLister, ttl time.Duration) *AdminCache {
	if ttl <= 0 {
		ttl = adminCacheTTL
	}
	return &AdminCache{
		source: source,
		cache:  expirable.NewLRU[int64, []int64](adminCacheSize, nil, ttl),
	}
}

// Administrators returns the admin ids of a chat. Failed lookups are not cached.
func (c *AdminCache) Administrators(ctx context.Context, chatID int64) ([]int64, error) {
	if ids, ok := c.cache.Get(chatID); ok {
		return ids, nil
	}
	ids, err := c.source.GetAdministrators(ctx, chatID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(chatID, ids)
	logger.Debugf("Cached %d administrators of chat %d", len(ids), chatID)
	return ids, nil
}

// IsAdmin reports whether userID administers chatID.
func (c *AdminCache) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	ids, err := c.Administrators(ctx, chatID)
	if err != nil {
		return false, err
	}
	return slices.Contains(ids, userID), nil
}

// Invalidate drops the cached list, e.g. after a promotion or demotion.
func (c *AdminCache) Invalidate(chatID int64) {
	c.cache.Remove(chatID)
}
