// package cache deduplicates expensive render resources by stable identity
// key. A cache is an explicit epoch object owned by whoever defines the
// resource lifetime: the synchronizer holds process-duration epochs for
// materials, geometry, and cameras, while the file emitter constructs a fresh
// epoch per frame when split-asset mode re-declares resources each state file.
//
// Keys are identity-derived and content-independent. All mutation happens on
// the synchronization pass (single-writer), so there is no locking on the
// resolve path.
package cache

// Handle is a stable index into one epoch. Handles are weak references: nodes
// hold them for lookup, the epoch holds the resource.
type Handle int

// InvalidHandle marks the absence of a cached resource.
const InvalidHandle Handle = -1

// Epoch is one cache generation for resources of type T. The zero value is not
// usable; construct with NewEpoch.
type Epoch[T any] struct {
	handles map[uint64]Handle
	values  []T
	keys    []uint64
}

// NewEpoch creates an empty cache epoch.
func NewEpoch[T any]() *Epoch[T] {
	return &Epoch[T]{handles: make(map[uint64]Handle)}
}

// Resolve returns the handle for key, constructing the resource with build on
// first resolution. Construction happens at most once per key per epoch; the
// second return value reports whether this call constructed it. A build error
// leaves the epoch unchanged and is returned to the caller.
func (e *Epoch[T]) Resolve(key uint64, build func() (T, error)) (Handle, bool, error) {
	if h, ok := e.handles[key]; ok {
		return h, false, nil
	}
	v, err := build()
	if err != nil {
		return InvalidHandle, false, err
	}
	h := Handle(len(e.values))
	e.handles[key] = h
	e.values = append(e.values, v)
	e.keys = append(e.keys, key)
	return h, true, nil
}

// Lookup returns the handle for key without constructing anything.
func (e *Epoch[T]) Lookup(key uint64) (Handle, bool) {
	h, ok := e.handles[key]
	return h, ok
}

// Get returns the resource behind a handle. The handle must come from this
// epoch and the epoch must not have been reset since.
func (e *Epoch[T]) Get(h Handle) T {
	return e.values[h]
}

// Key returns the identity key a handle was resolved under.
func (e *Epoch[T]) Key(h Handle) uint64 {
	return e.keys[h]
}

// Len returns the number of resources constructed in this epoch.
func (e *Epoch[T]) Len() int {
	return len(e.values)
}

// Reset clears the epoch. Used for frame-scoped generations; persistent epochs
// are never reset and stay bounded by entity count.
func (e *Epoch[T]) Reset() {
	clear(e.handles)
	e.values = e.values[:0]
	e.keys = e.keys[:0]
}
