package feed

// Collection is an ordered, append-only list of items that never holds two
// items with the same key and keeps at most max items, evicting the oldest.
type Collection[T any] struct {
	key   func(T) string
	max   int
	items []T
	index map[string]struct{}
}

// NewCollection returns an empty collection. max <= 0 means unbounded.
func NewCollection[T any](key func(T) string, max int) *Collection[T] {
	return &Collection[T]{
		key:   key,
		max:   max,
		index: make(map[string]struct{}),
	}
}

// Merge appends the items of page whose keys are not already present, in the
// order received, then applies the retention bound. It returns the number of
// novel items appended (before eviction).
func (c *Collection[T]) Merge(page []T) int {
	added := 0
	for _, it := range page {
		k := c.key(it)
		if _, dup := c.index[k]; dup {
			continue
		}
		c.index[k] = struct{}{}
		c.items = append(c.items, it)
		added++
	}
	c.evict()
	return added
}

func (c *Collection[T]) evict() {
	if c.max <= 0 || len(c.items) <= c.max {
		return
	}
	drop := len(c.items) - c.max
	for _, it := range c.items[:drop] {
		delete(c.index, c.key(it))
	}
	kept := make([]T, c.max)
	copy(kept, c.items[drop:])
	c.items = kept
}

// Items returns a copy of the items in order.
func (c *Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// At returns the item at i.
func (c *Collection[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(c.items) {
		return zero, false
	}
	return c.items[i], true
}

// Contains reports whether an item with key k is retained.
func (c *Collection[T]) Contains(k string) bool {
	_, ok := c.index[k]
	return ok
}

// Len returns the number of retained items.
func (c *Collection[T]) Len() int { return len(c.items) }

// Max returns the retention bound.
func (c *Collection[T]) Max() int { return c.max }

// Reset drops every item.
func (c *Collection[T]) Reset() {
	c.items = nil
	c.index = make(map[string]struct{})
}
