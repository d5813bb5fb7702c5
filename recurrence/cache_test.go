package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func cacheTestOptions() InstanceOptions {
	return InstanceOptions{
		ReferenceEvent: &CalendarEvent{
			StartsAt:        time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
			DurationMinutes: 60,
		},
	}
}

func TestInstanceCache_BasicOperations(t *testing.T) {
	cache := NewInstanceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	opts := cacheTestOptions()
	text := "RRULE:FREQ=DAILY;COUNT=5"

	// Cache miss first
	inst, found := cache.Get(text, opts)
	if found {
		t.Error("Expected cache miss, got hit")
	}
	if inst != nil {
		t.Error("Expected nil instance on cache miss")
	}

	parsed, err := ParseInstance(text, opts)
	if err != nil {
		t.Fatalf("ParseInstance failed: %v", err)
	}
	cache.Set(text, opts, parsed)

	inst, found = cache.Get(text, opts)
	if !found {
		t.Error("Expected cache hit, got miss")
	}
	if inst != parsed {
		t.Error("Expected the stored instance to be returned")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d and %d", stats.Hits, stats.Misses)
	}
}

func TestInstanceCache_GetOrParse(t *testing.T) {
	cache := NewInstanceCache(DefaultCacheConfig)
	defer cache.Close()

	opts := cacheTestOptions()
	first, err := cache.GetOrParse("RRULE:FREQ=WEEKLY;COUNT=3", opts)
	if err != nil {
		t.Fatalf("GetOrParse failed: %v", err)
	}
	second, err := cache.GetOrParse("RRULE:FREQ=WEEKLY;COUNT=3", opts)
	if err != nil {
		t.Fatalf("GetOrParse failed: %v", err)
	}
	if first != second {
		t.Error("Expected the second call to reuse the cached instance")
	}

	// Parse errors are returned and not cached
	if _, err := cache.GetOrParse("RRULE:FREQ=NEVER", opts); err == nil {
		t.Error("Expected parse error")
	}
	if stats := cache.Stats(); stats.TotalEntries != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.TotalEntries)
	}
}

func TestInstanceCache_TTLExpiration(t *testing.T) {
	cache := NewInstanceCache(CacheConfig{
		TTL:             100 * time.Millisecond, // Very short TTL for testing
		MaxEntries:      100,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer cache.Close()

	opts := cacheTestOptions()
	if _, err := cache.GetOrParse("RRULE:FREQ=DAILY;COUNT=5", opts); err != nil {
		t.Fatalf("GetOrParse failed: %v", err)
	}

	if _, found := cache.Get("RRULE:FREQ=DAILY;COUNT=5", opts); !found {
		t.Error("Expected cache hit immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := cache.Get("RRULE:FREQ=DAILY;COUNT=5", opts); found {
		t.Error("Expected cache miss after TTL expiration")
	}
}

func TestInstanceCache_KeyGeneration(t *testing.T) {
	base := cacheTestOptions()
	baseKey := cacheKey("RRULE:FREQ=DAILY;COUNT=5", base)

	later := *base.ReferenceEvent
	later.StartsAt = later.StartsAt.Add(time.Minute)
	longer := *base.ReferenceEvent
	longer.DurationMinutes = 90

	testCases := []struct {
		name string
		text string
		opts InstanceOptions
		same bool
	}{
		{name: "Same inputs", text: "RRULE:FREQ=DAILY;COUNT=5", opts: base, same: true},
		{name: "Different rule", text: "RRULE:FREQ=WEEKLY;COUNT=5", opts: base},
		{name: "Different start", text: "RRULE:FREQ=DAILY;COUNT=5", opts: InstanceOptions{ReferenceEvent: &later}},
		{name: "Different duration", text: "RRULE:FREQ=DAILY;COUNT=5", opts: InstanceOptions{ReferenceEvent: &longer}},
		{name: "With timezone", text: "RRULE:FREQ=DAILY;COUNT=5", opts: InstanceOptions{ReferenceEvent: base.ReferenceEvent, Timezone: "Europe/Berlin"}},
		{name: "With exclusion", text: "RRULE:FREQ=DAILY;COUNT=5", opts: InstanceOptions{ReferenceEvent: base.ReferenceEvent, Exclude: []time.Time{later.StartsAt}}},
		{name: "With iteration cap", text: "RRULE:FREQ=DAILY;COUNT=5", opts: InstanceOptions{ReferenceEvent: base.ReferenceEvent, MaxIterations: 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := cacheKey(tc.text, tc.opts)
			if tc.same && key != baseKey {
				t.Errorf("Test case '%s' should share the base key", tc.name)
			}
			if !tc.same && key == baseKey {
				t.Errorf("Test case '%s' should generate a different key", tc.name)
			}
		})
	}

	// Exclusion order does not matter
	a := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC)
	k1 := cacheKey("RRULE:FREQ=DAILY", InstanceOptions{Exclude: []time.Time{a, b}})
	k2 := cacheKey("RRULE:FREQ=DAILY", InstanceOptions{Exclude: []time.Time{b, a}})
	if k1 != k2 {
		t.Error("Expected exclusion order to be ignored")
	}
}

// Test cache size limits and LRU eviction
func TestInstanceCache_MaxEntriesEviction(t *testing.T) {
	cache := NewInstanceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      3, // Small limit for testing
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	opts := cacheTestOptions()
	for i := 0; i < 3; i++ {
		if _, err := cache.GetOrParse(fmt.Sprintf("RRULE:FREQ=DAILY;COUNT=%d", i+1), opts); err != nil {
			t.Fatalf("GetOrParse failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}

	if stats := cache.Stats(); stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", stats.TotalEntries)
	}

	// Add one more entry, should trigger eviction
	if _, err := cache.GetOrParse("RRULE:FREQ=WEEKLY;COUNT=1", opts); err != nil {
		t.Fatalf("GetOrParse failed: %v", err)
	}

	if stats := cache.Stats(); stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries after eviction, got %d", stats.TotalEntries)
	}
	if _, found := cache.Get("RRULE:FREQ=WEEKLY;COUNT=1", opts); !found {
		t.Error("Expected newest entry to be present after eviction")
	}
	if _, found := cache.Get("RRULE:FREQ=DAILY;COUNT=1", opts); found {
		t.Error("Expected oldest entry to be evicted")
	}
}

// Test concurrent access to cache
func TestInstanceCache_ConcurrentAccess(t *testing.T) {
	cache := NewInstanceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	const numGoroutines = 10
	const operationsPerGoroutine = 50

	opts := cacheTestOptions()
	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()
			for j := 0; j < operationsPerGoroutine; j++ {
				text := fmt.Sprintf("RRULE:FREQ=DAILY;COUNT=%d", goroutineID*operationsPerGoroutine+j+1)
				if j%2 == 0 {
					_, _ = cache.GetOrParse(text, opts)
				} else {
					cache.Get(text, opts)
				}
			}
		}(i)
	}
	wg.Wait()

	inst, err := cache.GetOrParse("RRULE:FREQ=DAILY;COUNT=999", opts)
	if err != nil || inst == nil {
		t.Error("Cache should still be functional after concurrent access")
	}
	if stats := cache.Stats(); stats.TotalEntries > 100 {
		t.Errorf("Expected at most 100 entries, got %d", stats.TotalEntries)
	}
}

func TestInstanceCache_CloseIsIdempotent(t *testing.T) {
	cache := NewInstanceCache(DefaultCacheConfig)
	if _, err := cache.GetOrParse("RRULE:FREQ=DAILY;COUNT=2", cacheTestOptions()); err != nil {
		t.Fatalf("GetOrParse failed: %v", err)
	}
	cache.Close()
	cache.Close()

	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("Expected empty cache after close, got %d entries", stats.TotalEntries)
	}
}
