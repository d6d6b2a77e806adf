package lexicon

import (
	"testing"
)

func TestSynonymCache_GetSet(t *testing.T) {
	c := NewSynonymCache(2)
	if v, ok := c.Get("a", Noun); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", Noun, []string{"x", "y"})
	v, ok := c.Get("a", Noun)
	if !ok || len(v) != 2 || v[0] != "x" {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	if _, ok := c.Get("a", Adj); ok {
		t.Error("category is part of the key")
	}
	c.Set("b", Noun, nil)
	c.Set("c", Noun, []string{"z"}) // evicts a
	if _, ok := c.Get("a", Noun); ok {
		t.Error("expected a to be evicted")
	}
	if v, ok := c.Get("b", Noun); !ok || v != nil {
		t.Error("empty synonym list should still be a hit")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 3 {
		t.Errorf("Stats() = %d hits, %d misses; want 2, 3", hits, misses)
	}
}

func TestSynonymCache_defaultCapacity(t *testing.T) {
	c := NewSynonymCache(0)
	if c.capacity != DefaultCacheSize {
		t.Errorf("capacity = %d, want %d", c.capacity, DefaultCacheSize)
	}
}
