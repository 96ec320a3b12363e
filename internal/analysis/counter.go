package analysis

import "sort"

// Counter is a multiset that remembers the order in which keys were
// first added. Ranking ties are broken by that order.
type Counter[K comparable] struct {
	counts map[K]int64
	order  []K
}

// NewCounter returns an empty Counter.
func NewCounter[K comparable]() *Counter[K] {
	return &Counter[K]{counts: make(map[K]int64)}
}

// Add increments k by n.
func (c *Counter[K]) Add(k K, n int64) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k] += n
}

// Count returns the count for k, zero when absent.
func (c *Counter[K]) Count(k K) int64 {
	if c == nil {
		return 0
	}
	return c.counts[k]
}

// Len returns the number of distinct keys.
func (c *Counter[K]) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// Keys returns the keys in first-seen order.
func (c *Counter[K]) Keys() []K {
	if c == nil {
		return nil
	}
	return append([]K(nil), c.order...)
}

// Entry is one ranked key.
type Entry[K comparable] struct {
	Key   K
	Count int64
}

// MostCommon returns the n highest counts, descending. Equal counts keep
// first-seen order. n < 0 returns every entry.
func (c *Counter[K]) MostCommon(n int) []Entry[K] {
	if c == nil || n == 0 {
		return nil
	}
	entries := make([]Entry[K], len(c.order))
	for i, k := range c.order {
		entries[i] = Entry[K]{Key: k, Count: c.counts[k]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}

// MergeCounters sums counters into a new one. Inputs are not modified.
// Key order follows the inputs: all keys of the first counter, then the
// new keys of the second, and so on.
func MergeCounters[K comparable](counters ...*Counter[K]) *Counter[K] {
	merged := NewCounter[K]()
	for _, c := range counters {
		if c == nil {
			continue
		}
		for _, k := range c.order {
			merged.Add(k, c.counts[k])
		}
	}
	return merged
}
