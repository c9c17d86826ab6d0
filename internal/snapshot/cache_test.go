package snapshot

import (
	"testing"

	"contractfuzz/internal/trace"
)

func TestUnboundedGetPutMiss(t *testing.T) {
	c := NewCache(0)
	if _, ok := c.Get(trace.EmptyHash); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Put(trace.EmptyHash, "genesis")
	got, ok := c.Get(trace.EmptyHash)
	if !ok || got != "genesis" {
		t.Fatalf("expected hit with stored value, got %v %v", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

func TestBoundedEvictsLRU(t *testing.T) {
	c := NewCache(2)
	c.Put(trace.Hash(1), "a")
	c.Put(trace.Hash(2), "b")
	c.Put(trace.Hash(3), "c") // evicts 1 (least recently used)
	if _, ok := c.Get(trace.Hash(1)); ok {
		t.Fatalf("expected trace hash 1 to be evicted")
	}
	if _, ok := c.Get(trace.Hash(2)); !ok {
		t.Fatalf("expected trace hash 2 to survive")
	}
	if _, ok := c.Get(trace.Hash(3)); !ok {
		t.Fatalf("expected trace hash 3 to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("expected capacity-bounded length 2, got %d", c.Len())
	}
}
