package cache

import (
	"testing"
	"time"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](2, 0)
	c.Add("a", 1)
	c.Add("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a missing")
	}
	c.Add("c", 3) // b is now LRU

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %d, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestLRU_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := New[string, string](4, time.Minute)
	c.now = func() time.Time { return now }

	c.Add("host", "slug")
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("host"); !ok {
		t.Fatalf("entry expired early")
	}
	now = now.Add(time.Second)
	if _, ok := c.Get("host"); ok {
		t.Fatalf("entry outlived its TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed")
	}
}

func TestLRU_RemoveFunc(t *testing.T) {
	c := New[string, int](8, 0)
	for i, k := range []string{"a", "b", "c", "d"} {
		c.Add(k, i%2)
	}
	if n := c.RemoveFunc(func(_ string, v int) bool { return v == 1 }); n != 2 {
		t.Fatalf("removed %d", n)
	}
	c.Remove("a")
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("c missing")
	}
}

func TestNew_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	New[string, int](0, 0)
}
