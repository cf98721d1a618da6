package repository

import (
	"context"
	"testing"
	"time"

	"TickBrain/pkg/cache"
	"TickBrain/pkg/logger"
)

func testDeduper(t *testing.T) *CacheDeduper {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return NewCacheDeduper(mc, time.Minute, log).(*CacheDeduper)
}

func TestDeduperFirstSightingPasses(t *testing.T) {
	d := testDeduper(t)
	ctx := context.Background()

	if d.Seen(ctx, "evt-1") {
		t.Fatalf("first sighting must not be a duplicate")
	}
	if !d.Seen(ctx, "evt-1") {
		t.Fatalf("second sighting must be a duplicate")
	}
	if d.Seen(ctx, "evt-2") {
		t.Fatalf("distinct IDs must not collide")
	}
}

func TestDeduperEmptyIDNeverDuplicate(t *testing.T) {
	d := testDeduper(t)
	ctx := context.Background()

	if d.Seen(ctx, "") || d.Seen(ctx, "") {
		t.Fatalf("empty event ID must never dedup")
	}
}
