package journals

import (
	"context"

	"github.com/mrwhyte0520/contabi/internal/platform/cache"
)

// Getter loads a stored entry by number.
type Getter interface {
	GetByNumber(ctx context.Context, number string) (JournalEntry, error)
}

// CachedReader serves posted entries from Redis. Entries are immutable once
// posted so the cache never needs invalidation.
type CachedReader struct {
	source Getter
	cache  *cache.JSONCache
}

func NewCachedReader(source Getter, c *cache.JSONCache) *CachedReader {
	return &CachedReader{source: source, cache: c}
}

func (r *CachedReader) GetByNumber(ctx context.Context, number string) (JournalEntry, error) {
	var entry JournalEntry
	err := r.cache.Fetch(ctx, r.cache.Key("journal", number), &entry, func(ctx context.Context) (any, error) {
		return r.source.GetByNumber(ctx, number)
	})
	return entry, err
}
