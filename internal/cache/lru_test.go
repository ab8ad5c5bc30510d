package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := New[int](2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Get("a") // a becomes MRU
	c.Add("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestLRUPurge(t *testing.T) {
	c := New[string](4)
	c.Add("x", "1")
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("Len after purge = %d", c.Len())
	}
}

func TestLRUConcurrent(t *testing.T) {
	c := New[int](16)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := strconv.Itoa((n + j) % 32)
				c.Add(k, j)
				c.Get(k)
			}
		}(i)
	}
	wg.Wait()
	if c.Len() > 16 {
		t.Fatalf("Len = %d exceeds capacity", c.Len())
	}
}
