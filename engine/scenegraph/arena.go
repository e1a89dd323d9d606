package scenegraph

// Arena owns live render resources indexed by slot, with explicit reference
// counts incremented on node create and decremented on node destroy. Nodes hold
// slot indices as weak references; the arena holds the resources. Slots are
// recycled through a free list so indices stay dense across churn.
type Arena[T any] struct {
	slots []slot[T]
	byKey map[uint64]int
	free  []int
	live  int
}

type slot[T any] struct {
	value T
	key   uint64
	refs  int
}

// NewArena creates an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{byKey: make(map[uint64]int)}
}

// Acquire returns the slot for key, building the resource on first use, and
// increments its reference count.
func (a *Arena[T]) Acquire(key uint64, build func() T) int {
	if i, ok := a.byKey[key]; ok {
		a.slots[i].refs++
		return i
	}
	var i int
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[i] = slot[T]{value: build(), key: key, refs: 1}
	} else {
		i = len(a.slots)
		a.slots = append(a.slots, slot[T]{value: build(), key: key, refs: 1})
	}
	a.byKey[key] = i
	a.live++
	return i
}

// Release decrements the slot's reference count, freeing the resource when the
// last reference drops.
//
// Returns:
//   - bool: true if this release freed the resource
func (a *Arena[T]) Release(i int) bool {
	s := &a.slots[i]
	if s.refs == 0 {
		return false
	}
	s.refs--
	if s.refs > 0 {
		return false
	}
	delete(a.byKey, s.key)
	var zero T
	s.value = zero
	a.free = append(a.free, i)
	a.live--
	return true
}

// Get returns the resource in a live slot.
func (a *Arena[T]) Get(i int) T { return a.slots[i].value }

// Refs returns the current reference count of a slot.
func (a *Arena[T]) Refs(i int) int { return a.slots[i].refs }

// Len returns the number of live resources.
func (a *Arena[T]) Len() int { return a.live }

// Lookup returns the live slot for key, if any.
func (a *Arena[T]) Lookup(key uint64) (int, bool) {
	i, ok := a.byKey[key]
	return i, ok
}
