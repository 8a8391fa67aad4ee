package application

import (
	"fmt"
	"testing"
	"time"
)

type manualClock struct {
	instant time.Time
}

func newManualClock() *manualClock {
	return &manualClock{instant: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) now() time.Time { return c.instant }

func (c *manualClock) advance(d time.Duration) { c.instant = c.instant.Add(d) }

func TestSearchCache_StoreAndGet(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	cache := newSearchCache(time.Minute, 8, clock.now)

	results := []Event{{ID: "e1", Title: "Audiência"}}
	cache.Store("key", results)

	got, ok := cache.Get("key")
	if !ok || len(got) != 1 || got[0].ID != "e1" {
		t.Fatalf("expected cached result, got ok=%v %v", ok, got)
	}

	// Cached slices are defensive copies.
	got[0].Title = "mutated"
	again, _ := cache.Get("key")
	if again[0].Title != "Audiência" {
		t.Fatal("cache entry aliases returned slice")
	}

	if _, ok := cache.Get("other"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestSearchCache_TTLExpiry(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	cache := newSearchCache(time.Minute, 8, clock.now)

	cache.Store("key", []Event{{ID: "e1"}})
	clock.advance(time.Minute + time.Second)

	if _, ok := cache.Get("key"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestSearchCache_InvalidateDropsEverything(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	cache := newSearchCache(time.Minute, 8, clock.now)

	cache.Store("a", []Event{{ID: "e1"}})
	cache.Store("b", []Event{{ID: "e2"}})
	cache.Invalidate()

	if _, ok := cache.Get("a"); ok {
		t.Fatal("expected invalidated entry to miss")
	}
	if _, ok := cache.Get("b"); ok {
		t.Fatal("expected invalidated entry to miss")
	}
}

func TestSearchCache_BoundedSize(t *testing.T) {
	t.Parallel()

	clock := newManualClock()
	cache := newSearchCache(time.Minute, 4, clock.now)

	for i := 0; i < 10; i++ {
		cache.Store(fmt.Sprintf("key-%d", i), []Event{{ID: fmt.Sprintf("e%d", i)}})
	}

	cache.mu.RLock()
	size := len(cache.entries)
	cache.mu.RUnlock()
	if size > 4 {
		t.Fatalf("expected at most 4 entries, got %d", size)
	}
}

func TestBuildSearchCacheKey(t *testing.T) {
	t.Parallel()

	// Equivalent queries map to the same key regardless of type order and
	// term case.
	a := buildSearchCacheKey("Reunião", []EventType{EventTypeMeeting, EventTypeHearing}, 7)
	b := buildSearchCacheKey("reunião", []EventType{EventTypeHearing, EventTypeMeeting}, 7)
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}

	// A different revision must never collide.
	c := buildSearchCacheKey("reunião", []EventType{EventTypeHearing, EventTypeMeeting}, 8)
	if a == c {
		t.Fatalf("expected revision to change the key, both %q", a)
	}
}
