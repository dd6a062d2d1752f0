package layer

import "testing"

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []uint64
	pins := newPinSet()
	c := newPageCache(2, pins)
	c.onEvict = func(p *page) { evicted = append(evicted, p.index) }

	c.insert(newPage(0))
	c.insert(newPage(1))
	c.get(0) // touch 0, making 1 the LRU victim
	c.insert(newPage(2))

	if len(evicted) != 1 || evicted[0] != 1 {
		t.Fatalf("evicted = %v, want [1]", evicted)
	}
}

func TestCacheSkipsPinnedPages(t *testing.T) {
	pins := newPinSet()
	pins.pin(0)
	c := newPageCache(1, pins)

	c.insert(newPage(0))
	c.insert(newPage(1)) // page 0 is pinned, cache grows past capacity

	if c.count() != 2 {
		t.Fatalf("count = %d, want 2 (pinned page kept)", c.count())
	}
	if _, ok := c.get(0); !ok {
		t.Fatal("pinned page 0 was evicted")
	}
}

func TestEvictMatchingRespectsTarget(t *testing.T) {
	pins := newPinSet()
	c := newPageCache(0, pins) // unbounded: insert never triggers evictOne
	for i := uint64(0); i < 5; i++ {
		c.insert(newPage(i))
	}

	n := 0
	c.evictMatching(func(p *page) bool {
		if n >= 2 {
			return false
		}
		n++
		return true
	})

	if c.count() != 3 {
		t.Fatalf("count = %d, want 3", c.count())
	}
}

func TestEvictRangeWithoutFlushIgnoresPins(t *testing.T) {
	pins := newPinSet()
	pins.pin(5)
	c := newPageCache(0, pins)
	c.insert(newPage(3))
	c.insert(newPage(5))

	c.evictRangeWithoutFlush(3)

	if _, ok := c.get(5); ok {
		t.Fatal("page 5 should have been dropped by truncate-shrink despite being pinned")
	}
	if _, ok := c.get(3); !ok {
		t.Fatal("page 3 should have been kept (index <= keepUpTo)")
	}
}
