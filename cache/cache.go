package cache

import "d2sync/entity"

// Refreshable is a unit variant that can absorb a freshly decoded copy of
// itself in place.
type Refreshable[T any] interface {
	comparable
	entity.Unit
	CopyFrom(T)
}

// Cache keeps the live instance of every unit of one variant seen by one
// process. Instances are refreshed in place so references held by consumers
// keep observing fresh data. Units that vanish from the table are kept as
// last-known state.
type Cache[T Refreshable[T]] struct {
	byID   map[uint32]T
	byHash map[string]T

	// transient units are identified by their composite key first: the game
	// reuses unit ids for them.
	transient func(T) bool
}

// New creates a cache. transient may be nil.
func New[T Refreshable[T]](transient func(T) bool) *Cache[T] {
	if transient == nil {
		transient = func(T) bool { return false }
	}
	return &Cache[T]{
		byID:      make(map[uint32]T),
		byHash:    make(map[string]T),
		transient: transient,
	}
}

// Reconcile merges this tick's decoded units into the cache and returns the
// live instances, one per unit id.
func (c *Cache[T]) Reconcile(fresh []T) []T {
	out := make([]T, 0, len(fresh))
	produced := make(map[uint32]struct{}, len(fresh))
	claimed := make(map[T]struct{}, len(fresh))

	for _, f := range fresh {
		h := f.Head()
		if _, dup := produced[h.UnitID]; dup {
			continue
		}

		live, found := c.lookup(f)
		if _, taken := claimed[live]; found && !taken {
			live.CopyFrom(f)
		} else {
			live = f
		}
		claimed[live] = struct{}{}
		produced[h.UnitID] = struct{}{}

		c.byID[h.UnitID] = live
		if c.transient(live) {
			c.byHash[live.HashString()] = live
		}
		out = append(out, live)
	}
	return out
}

func (c *Cache[T]) lookup(f T) (T, bool) {
	h := f.Head()
	if c.transient(f) {
		key := f.HashString()
		if live, ok := c.byID[h.UnitID]; ok && live.HashString() == key {
			return live, true
		}
		if live, ok := c.LookupHash(key); ok {
			return live, true
		}
	}
	live, ok := c.byID[h.UnitID]
	if !ok {
		return live, false
	}
	lh := live.Head()
	if lh.UnitID != h.UnitID || lh.TxtFileNo != h.TxtFileNo {
		var zero T
		return zero, false
	}
	return live, true
}

// Get returns the live instance for a unit id.
func (c *Cache[T]) Get(id uint32) (T, bool) {
	live, ok := c.byID[id]
	if ok && live.Head().UnitID != id {
		var zero T
		return zero, false
	}
	return live, ok
}

// LookupHash returns the live instance still located at the composite key.
func (c *Cache[T]) LookupHash(key string) (T, bool) {
	live, ok := c.byHash[key]
	if ok && live.HashString() != key {
		var zero T
		return zero, false
	}
	return live, ok
}

// Index registers live under its current composite key.
func (c *Cache[T]) Index(live T) {
	c.byHash[live.HashString()] = live
}

func (c *Cache[T]) Len() int { return len(c.byID) }

func (c *Cache[T]) Clear() {
	c.byID = make(map[uint32]T)
	c.byHash = make(map[string]T)
}
