package cache

import (
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("a", "uno")
	got, ok := c.Get("a")
	if !ok || got != "uno" {
		t.Errorf("Get(a) = (%q, %v)", got, ok)
	}

	c.Set("a", "dos")
	if got, _ := c.Get("a"); got != "dos" {
		t.Errorf("Get(a) after overwrite = %q", got)
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // refresh a so b is the eviction candidate
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("%s should survive the eviction", key)
		}
	}
}

func TestLRUCache_ExpiredEntriesMiss(t *testing.T) {
	c := NewLRUCache[int](10, -time.Minute)

	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should miss")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c := NewLRUCache[int](10, -time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if removed := c.CleanExpired(); removed != 2 {
		t.Errorf("CleanExpired = %d, want 2", removed)
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Errorf("second CleanExpired = %d, want 0", removed)
	}
}

type signalingCleaner struct {
	swept chan struct{}
}

func (s *signalingCleaner) CleanExpired() int {
	select {
	case s.swept <- struct{}{}:
	default:
	}
	return 1
}

func TestManager_SweepsAndStops(t *testing.T) {
	cleaner := &signalingCleaner{swept: make(chan struct{}, 1)}

	m := NewManager()
	m.Register(cleaner)
	m.StartCleanup(5 * time.Millisecond)

	select {
	case <-cleaner.swept:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep never ran")
	}

	m.Stop()
}
