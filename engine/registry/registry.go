// package registry tracks which simulation entities are currently projected
// and, per entity, the visual-graph node handles it owns. Membership is a set
// keyed by entity identity; node associations are back-references for later
// mutation, never resource ownership.
package registry

import (
	"github.com/davik-lab/specula/engine/emit"
	"github.com/davik-lab/specula/sim"
)

type entry struct {
	entity     sim.Entity
	nodes      []emit.NodeID
	annotation string
}

// Registry is the set of projected entities. Not safe for concurrent use; all
// mutation happens on the synchronization thread.
type Registry struct {
	entries map[uint64]*entry
	order   []uint64
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[uint64]*entry)}
}

// Add registers an entity for projection. Idempotent: re-adding a registered
// entity is a no-op. Entities without a visual model are refused.
//
// Returns:
//   - bool: true if the entity is registered after the call
func (r *Registry) Add(e sim.Entity) bool {
	if e.VisualModel() == nil {
		return false
	}
	if _, ok := r.entries[e.Key()]; ok {
		return true
	}
	r.entries[e.Key()] = &entry{entity: e}
	r.order = append(r.order, e.Key())
	return true
}

// AddAll sweeps the system and registers every entity that exposes a visual model.
//
// Returns:
//   - int: number of entities accepted (including ones already registered)
func (r *Registry) AddAll(sys sim.System) int {
	n := 0
	for _, e := range sys.Entities() {
		if r.Add(e) {
			n++
		}
	}
	return n
}

// Remove drops an entity and its node associations. Removing an unregistered
// entity is a no-op.
func (r *Registry) Remove(e sim.Entity) {
	key := e.Key()
	if _, ok := r.entries[key]; !ok {
		return
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// RemoveAll empties the registry.
func (r *Registry) RemoveAll() {
	clear(r.entries)
	r.order = r.order[:0]
}

// Len returns the number of registered entities.
func (r *Registry) Len() int { return len(r.entries) }

// Contains reports whether the entity is registered.
func (r *Registry) Contains(e sim.Entity) bool {
	_, ok := r.entries[e.Key()]
	return ok
}

// Entities returns registered entities in insertion order.
func (r *Registry) Entities() []sim.Entity {
	out := make([]sim.Entity, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k].entity)
	}
	return out
}

// SetAnnotation attaches opaque pass-through text to an entity's projection,
// replacing any prior annotation. At most one annotation per entity. Setting
// an annotation on an unregistered entity is a no-op.
func (r *Registry) SetAnnotation(e sim.Entity, text string) {
	if en, ok := r.entries[e.Key()]; ok {
		en.annotation = text
	}
}

// Annotation returns the entity's annotation text, empty when unset.
func (r *Registry) Annotation(key uint64) string {
	if en, ok := r.entries[key]; ok {
		return en.annotation
	}
	return ""
}

// SetNodes records the node handles an entity owns, replacing any prior set.
func (r *Registry) SetNodes(key uint64, nodes []emit.NodeID) {
	if en, ok := r.entries[key]; ok {
		en.nodes = nodes
	}
}

// Nodes returns the node handles recorded for an entity.
func (r *Registry) Nodes(key uint64) []emit.NodeID {
	if en, ok := r.entries[key]; ok {
		return en.nodes
	}
	return nil
}

// ClearNodes drops all node associations (structural rebuild) without touching
// membership or annotations.
func (r *Registry) ClearNodes() {
	for _, en := range r.entries {
		en.nodes = nil
	}
}
