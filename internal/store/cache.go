package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"medvault-rag/models"
	"medvault-rag/utils"
)

// SummaryCache holds at most one generated answer per (user, folder scope),
// pinned to the corpus signature it was computed from. Invalidation is
// content-driven: a signature mismatch is a miss, so no TTL is required.
type SummaryCache struct {
	rdb *redis.Client
}

func NewSummaryCache(rdb *redis.Client) *SummaryCache {
	return &SummaryCache{rdb: rdb}
}

func cacheKey(userID, scope string) string {
	if scope == "" {
		scope = "_root"
	}
	return "summary:" + userID + ":" + scope
}

// Get returns the cached entry iff its signature matches the supplied one
// and its text is usable. Stale or malformed entries read as a miss.
func (c *SummaryCache) Get(ctx context.Context, userID, scope, signature string) (*models.SummaryCacheEntry, bool) {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()

	raw, err := c.rdb.Get(ctx, cacheKey(userID, scope)).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return nil, false
	}

	var entry models.SummaryCacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false
	}

	if entry.Signature != signature {
		return nil, false
	}
	answer := strings.TrimSpace(entry.Answer)
	if answer == "" || strings.HasPrefix(strings.ToLower(answer), "error") {
		return nil, false
	}

	return &entry, true
}

// Put upserts the single live entry for (user, scope). Last write wins.
func (c *SummaryCache) Put(ctx context.Context, userID, scope string, entry models.SummaryCacheEntry) error {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()

	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey(userID, scope), raw, 0).Err()
}

// Clear removes the entry for (user, scope). Returns the number of keys
// deleted; deleting a missing entry is a no-op.
func (c *SummaryCache) Clear(ctx context.Context, userID, scope string) (int64, error) {
	ctx, cancel := utils.WithShortTimeout(ctx)
	defer cancel()

	return c.rdb.Del(ctx, cacheKey(userID, scope)).Result()
}

// ClearAll removes every cached summary for a user across scopes.
func (c *SummaryCache) ClearAll(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := utils.WithTimeout(ctx)
	defer cancel()

	var deleted int64
	iter := c.rdb.Scan(ctx, 0, "summary:"+userID+":*", 0).Iterator()
	for iter.Next(ctx) {
		n, err := c.rdb.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, iter.Err()
}
