package dedup

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("sig-1", "payload")

	got, ok := c.Get("sig-1")
	if !ok {
		t.Fatal("expected hit for fresh entry")
	}
	if got != "payload" {
		t.Errorf("Get returned %v, want %q", got, "payload")
	}
}

func TestGetMissesUnknownKey(t *testing.T) {
	c := New(time.Minute)
	if _, ok := c.Get("never-seen"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestExpiredEntryIsMissAndEvicted(t *testing.T) {
	c := New(50 * time.Millisecond)

	c.Set("sig-1", 1)
	time.Sleep(70 * time.Millisecond)

	if _, ok := c.Get("sig-1"); ok {
		t.Fatal("expected miss for expired entry")
	}
	// Lazy eviction removed the entry entirely
	if got := c.Size(); got != 0 {
		t.Errorf("Size() after lazy eviction = %d, want 0", got)
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c := New(50 * time.Millisecond)

	c.Set("old-1", 1)
	c.Set("old-2", 2)
	time.Sleep(70 * time.Millisecond)
	c.Set("fresh", 3)

	removed := c.Sweep()
	if removed != 2 {
		t.Errorf("Sweep removed %d entries, want 2", removed)
	}
	if got := c.Size(); got != 1 {
		t.Errorf("Size() after sweep = %d, want 1", got)
	}
	if !c.Has("fresh") {
		t.Error("fresh entry should survive sweep")
	}
}

func TestSetOverwritesAndRestampsEntry(t *testing.T) {
	c := New(100 * time.Millisecond)

	c.Set("sig-1", "first")
	time.Sleep(60 * time.Millisecond)
	c.Set("sig-1", "second")
	time.Sleep(60 * time.Millisecond)

	// 120ms after first insert but only 60ms after overwrite
	got, ok := c.Get("sig-1")
	if !ok {
		t.Fatal("overwritten entry should be restamped, expected hit")
	}
	if got != "second" {
		t.Errorf("Get returned %v, want %q", got, "second")
	}
}

func TestSizeCountsEntries(t *testing.T) {
	c := New(time.Minute)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, k)
	}
	if got := c.Size(); got != 3 {
		t.Errorf("Size() = %d, want 3", got)
	}
}
