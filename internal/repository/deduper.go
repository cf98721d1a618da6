package repository

import (
	"context"
	"time"

	drepo "TickBrain/internal/domain/repository"
	"TickBrain/pkg/cache"
	"TickBrain/pkg/logger"
)

// CacheDeduper remembers recently seen event IDs in a cache backend.
// TryLock gives check-and-set in one round trip; the first caller for an
// ID wins and every later caller within the TTL sees a duplicate.
// Cache failures fail open: a replayed event is a no-op downstream anyway,
// while a dropped fresh event is not.
type CacheDeduper struct {
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

// NewCacheDeduper creates the deduper. ttl 0 falls back to 10 minutes.
func NewCacheDeduper(c cache.Service, ttl time.Duration, log *logger.Logger) drepo.Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CacheDeduper{cache: c, ttl: ttl, log: log}
}

func (d *CacheDeduper) Seen(ctx context.Context, eventID string) bool {
	if eventID == "" {
		return false
	}
	ok, err := d.cache.TryLock(ctx, cache.GenerateKey("dedup", eventID), d.ttl)
	if err != nil {
		d.log.Warn("dedup check failed", logger.Error(err), logger.String("event_id", eventID))
		return false
	}
	return !ok
}
